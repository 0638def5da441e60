package tickets

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// SortOrder orders lists by creation time.
type SortOrder string

const (
	// SortNewest lists the most recent ticket first.
	SortNewest SortOrder = "newest"
	// SortOldest lists the earliest ticket first.
	SortOldest SortOrder = "oldest"
)

// StatusFilterAll disables a status sub-filter.
const StatusFilterAll = "ALL"

// Filters drive the active and archive lists.
type Filters struct {
	Keyword       string    `json:"keyword"`
	OnlyMine      bool      `json:"onlyMine"`
	Sort          SortOrder `json:"sort"`
	ActiveStatus  string    `json:"activeStatus"`
	ArchiveStatus string    `json:"archiveStatus"`
}

// DefaultFilters shows everything, newest first.
func DefaultFilters() Filters {
	return Filters{
		Sort:          SortNewest,
		ActiveStatus:  StatusFilterAll,
		ArchiveStatus: StatusFilterAll,
	}
}

func (f Filters) normalized() Filters {
	if f.Sort != SortOldest {
		f.Sort = SortNewest
	}
	f.ActiveStatus = normalizeBucket(f.ActiveStatus, domain.TicketStatusOpen, domain.TicketStatusProceeding, domain.TicketStatusPending)
	f.ArchiveStatus = normalizeBucket(f.ArchiveStatus, domain.TicketStatusClosed, domain.TicketStatusDeleted)
	return f
}

func normalizeBucket(value string, allowed ...domain.TicketStatus) string {
	upper := strings.ToUpper(strings.TrimSpace(value))
	for _, status := range allowed {
		if upper == string(status) {
			return upper
		}
	}
	return StatusFilterAll
}

// SetFilters replaces the list filters. Unknown sort or status values fall
// back to their defaults.
func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f.normalized()
}

// Filters returns the current list filters.
func (s *Store) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Stats counts tickets by effective status.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	Proceeding int `json:"proceeding"`
	Pending    int `json:"pending"`
	Closed     int `json:"closed"`
	Deleted    int `json:"deleted"`
	TodayNew   int `json:"todayNew"`
}

// Stats summarizes the list. TodayNew counts tickets created on now's
// calendar day in now's location.
func (s *Store) Stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Total: len(s.tickets)}
	y, m, d := now.Date()
	for _, t := range s.tickets {
		switch EffectiveStatus(t) {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusProceeding:
			stats.Proceeding++
		case domain.TicketStatusPending:
			stats.Pending++
		case domain.TicketStatusClosed:
			stats.Closed++
		case domain.TicketStatusDeleted:
			stats.Deleted++
		}
		if t.CreatedAt.IsZero() {
			continue
		}
		ty, tm, td := t.CreatedAt.In(now.Location()).Date()
		if ty == y && tm == m && td == d {
			stats.TodayNew++
		}
	}
	return stats
}

// ActiveTickets lists non-archived tickets matching the filters.
func (s *Store) ActiveTickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.filters.ActiveStatus
	return s.filterLocked(func(status domain.TicketStatus) bool {
		if status == domain.TicketStatusClosed || status == domain.TicketStatusDeleted {
			return false
		}
		return bucket == StatusFilterAll || string(status) == bucket
	})
}

// ArchivedTickets lists CLOSED and DELETED tickets matching the filters.
func (s *Store) ArchivedTickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.filters.ArchiveStatus
	return s.filterLocked(func(status domain.TicketStatus) bool {
		if status != domain.TicketStatusClosed && status != domain.TicketStatusDeleted {
			return false
		}
		return bucket == StatusFilterAll || string(status) == bucket
	})
}

// AllTickets lists every ticket matching the keyword and owner filters.
func (s *Store) AllTickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(func(domain.TicketStatus) bool { return true })
}

func (s *Store) filterLocked(keep func(domain.TicketStatus) bool) []domain.Ticket {
	keyword := strings.ToLower(strings.TrimSpace(s.filters.Keyword))
	var memberID int64
	if member := s.session.CurrentMember(); member != nil {
		memberID = member.ID
	}

	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if s.filters.OnlyMine {
			if memberID == 0 || t.CreatedByMemberID == nil || *t.CreatedByMemberID != memberID {
				continue
			}
		}
		if keyword != "" && !strings.Contains(haystack(t), keyword) {
			continue
		}
		if !keep(EffectiveStatus(t)) {
			continue
		}
		out = append(out, t.Clone())
	}

	newest := s.filters.Sort != SortOldest
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt.Time, out[j].CreatedAt.Time
		if newest {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out
}

func haystack(t domain.Ticket) string {
	parts := []string{
		strconv.FormatInt(t.ID, 10),
		t.Subject,
		t.Description,
		t.Name,
		t.Email,
		deref(t.GroupName),
		deref(t.CategoryName),
		string(t.Priority),
		string(EffectiveStatus(t)),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
