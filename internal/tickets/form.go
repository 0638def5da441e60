package tickets

import (
	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// Form is the new-ticket draft.
type Form struct {
	Name        string
	Email       string
	Subject     string
	Description string
	Priority    domain.TicketPriority
	GroupID     *int64
	CategoryID  *int64
}

func (f Form) clone() Form {
	out := f
	out.GroupID = cloneID(f.GroupID)
	out.CategoryID = cloneID(f.CategoryID)
	return out
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func hasID(id *int64) bool {
	return id != nil && *id != 0
}

// Form returns a copy of the draft.
func (s *Store) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.clone()
}

// SetForm replaces the draft. A blank priority becomes GENERAL.
func (s *Store) SetForm(form Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = form.clone()
	s.form.Priority = NormalizePriority(string(form.Priority))
}

// SetFiles selects the attachments for the next submit.
func (s *Store) SetFiles(files []apiclient.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]apiclient.Upload(nil), files...)
}

// Files returns the selected attachments.
func (s *Store) Files() []apiclient.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]apiclient.Upload(nil), s.files...)
}

// ApplyMemberProfile prefills requester fields from the signed-in member
// and drops the group and category selection.
func (s *Store) ApplyMemberProfile(member domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Name = member.Name
	s.form.Email = member.Email
	s.form.GroupID = nil
	s.form.CategoryID = nil
}

// ApplyDefaults selects the first group and category when the current
// selection is empty or no longer offered, and clears it when nothing is
// offered.
func (s *Store) ApplyDefaults() {
	if s.refs == nil {
		return
	}
	groups := s.refs.MyGroups()
	categories := s.refs.Categories()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.GroupID = defaultGroup(s.form.GroupID, groups)
	s.form.CategoryID = defaultCategory(s.form.CategoryID, categories)
}

func defaultGroup(current *int64, groups []domain.MyGroup) *int64 {
	if len(groups) == 0 {
		return nil
	}
	if current != nil {
		for _, g := range groups {
			if g.ID == *current {
				return current
			}
		}
	}
	id := groups[0].ID
	return &id
}

func defaultCategory(current *int64, categories []domain.HelpdeskCategory) *int64 {
	if len(categories) == 0 {
		return nil
	}
	if current != nil {
		for _, c := range categories {
			if c.ID == *current {
				return current
			}
		}
	}
	id := categories[0].ID
	return &id
}
