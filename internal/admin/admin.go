// Package admin holds the administrator-only state: member roster, group
// and category management, and the audit log browser. Every operation is a
// no-op unless the current member is an ADMIN.
package admin

import "context"

// Session is the slice of session state admin stores read.
type Session interface {
	IsAdmin() bool
	Generation() uint64
}

// BaseData reloads the reference data other views show after an admin
// change.
type BaseData interface {
	LoadMyGroups(ctx context.Context)
	LoadCategories(ctx context.Context)
}

// Confirmer gates destructive actions on an explicit affirmative answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}
