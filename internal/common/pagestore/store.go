// Package pagestore defines the flat key/value page abstraction applicant
// records live in, plus an in-memory implementation.
package pagestore

import (
	"context"
	"errors"
	"time"
)

// ErrPageNotFound is returned by GetPage for unknown ids.
var ErrPageNotFound = errors.New("page not found")

// Page is a document keyed by an opaque id. Text-bearing properties are plain
// strings; callers own any serialization inside them.
type Page struct {
	ID             string            `json:"id"`
	Fields         map[string]string `json:"fields"`
	CreatedTime    time.Time         `json:"createdTime"`
	LastEditedTime time.Time         `json:"lastEditedTime"`
}

// Field returns the value of name, or "" when absent.
func (p *Page) Field(name string) string {
	if p == nil || p.Fields == nil {
		return ""
	}
	return p.Fields[name]
}

// Store is get/set only; there are no transactions.
type Store interface {
	GetPage(ctx context.Context, id string) (*Page, error)
	UpdatePage(ctx context.Context, id string, fields map[string]string) error
}

// Atomic is implemented by stores that can report whether a multi-field
// UpdatePage is applied all-or-nothing.
type Atomic interface {
	AtomicUpdates() bool
}

// SupportsAtomicUpdates reports false for stores that do not implement Atomic.
func SupportsAtomicUpdates(s Store) bool {
	a, ok := s.(Atomic)
	return ok && a.AtomicUpdates()
}

// ListOptions is a cursor-paginated query.
type ListOptions struct {
	PageSize int
	Cursor   string
}

// ListResult is one page of a cursor-paginated query.
type ListResult struct {
	Pages      []*Page
	HasMore    bool
	NextCursor string
}

// Lister is implemented by stores that can enumerate pages of the applicant database.
type Lister interface {
	QueryPages(ctx context.Context, opts ListOptions) (*ListResult, error)
}

// Creator is implemented by stores that can create new pages.
type Creator interface {
	CreatePage(ctx context.Context, fields map[string]string) (*Page, error)
}

// Directory is the full surface used by the applicant directory.
type Directory interface {
	Store
	Lister
	Creator
}
