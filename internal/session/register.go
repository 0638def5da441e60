package session

import (
	"context"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

const (
	msgNeedIdentity   = "請先填寫員工工號與姓名。"
	msgNeedCredential = "請填寫 Email 與密碼。"
	msgPasswordShort  = "密碼至少 8 碼。"

	minPasswordLength = 8
	lastRegisterStep  = 3
)

type registerWizard struct {
	step int
	form domain.RegisterForm
}

// RegisterStep returns the current wizard step, 1 through 3.
func (m *Manager) RegisterStep() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wizard.step
}

// RegisterForm returns the form collected by the wizard.
func (m *Manager) RegisterForm() domain.RegisterForm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wizard.form
}

// UpdateRegisterForm replaces the wizard form.
func (m *Manager) UpdateRegisterForm(form domain.RegisterForm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wizard.form = form
}

// NextRegisterStep validates the current step and advances. It reports
// whether the step changed.
func (m *Manager) NextRegisterStep() bool {
	m.authError.Clear()
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg := validateStep(m.wizard.step, m.wizard.form); msg != "" {
		m.authError.Set(msg)
		return false
	}
	if m.wizard.step >= lastRegisterStep {
		return false
	}
	m.wizard.step++
	return true
}

// PrevRegisterStep goes back one step, stopping at step 1.
func (m *Manager) PrevRegisterStep() {
	m.authError.Clear()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wizard.step > 1 {
		m.wizard.step--
	}
}

// SubmitRegistration registers with the wizard form.
func (m *Manager) SubmitRegistration(ctx context.Context) error {
	return m.Register(ctx, m.RegisterForm())
}

func validateStep(step int, form domain.RegisterForm) string {
	switch step {
	case 1:
		if form.EmployeeID == "" || form.Name == "" {
			return msgNeedIdentity
		}
	case 2:
		if form.Email == "" || form.Password == "" {
			return msgNeedCredential
		}
		if len([]rune(form.Password)) < minPasswordLength {
			return msgPasswordShort
		}
	}
	return ""
}

func validateRegisterForm(form domain.RegisterForm) string {
	for step := 1; step < lastRegisterStep; step++ {
		if msg := validateStep(step, form); msg != "" {
			return msg
		}
	}
	return ""
}
