package pagestore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UpdateCall records one UpdatePage invocation.
type UpdateCall struct {
	ID     string
	Fields map[string]string
}

// Memory is an in-process Store used for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	pages   map[string]*Page
	atomic  bool
	now     func() time.Time
	updates []UpdateCall
	reads   int

	// Hooks let tests inject transport failures. A non-nil return aborts the call.
	OnGet    func(id string) error
	OnUpdate func(id string, fields map[string]string) error
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithAtomicUpdates controls what AtomicUpdates reports. Defaults to true.
func WithAtomicUpdates(atomic bool) MemoryOption {
	return func(m *Memory) { m.atomic = atomic }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		pages:  make(map[string]*Page),
		atomic: true,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) AtomicUpdates() bool { return m.atomic }

// Put seeds a page, replacing any existing one.
func (m *Memory) Put(id string, fields map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.pages[id] = &Page{ID: id, Fields: copyFields(fields), CreatedTime: now, LastEditedTime: now}
}

func (m *Memory) GetPage(ctx context.Context, id string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.OnGet != nil {
		if err := m.OnGet(id); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	p, ok := m.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, ErrPageNotFound)
	}
	return clonePage(p), nil
}

func (m *Memory) UpdatePage(ctx context.Context, id string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.OnUpdate != nil {
		if err := m.OnUpdate(id, fields); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[id]
	if !ok {
		return fmt.Errorf("page %s: %w", id, ErrPageNotFound)
	}
	for k, v := range fields {
		p.Fields[k] = v
	}
	p.LastEditedTime = m.now()
	m.updates = append(m.updates, UpdateCall{ID: id, Fields: copyFields(fields)})
	return nil
}

// CreatePage stores a new page under a random id.
func (m *Memory) CreatePage(ctx context.Context, fields map[string]string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	p := &Page{ID: id, Fields: copyFields(fields), CreatedTime: now, LastEditedTime: now}
	m.pages[id] = p
	return clonePage(p), nil
}

// QueryPages lists pages newest first. The cursor is the offset of the next page.
func (m *Memory) QueryPages(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offset := 0
	if opts.Cursor != "" {
		n, err := strconv.Atoi(opts.Cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid cursor %q", opts.Cursor)
		}
		offset = n
	}
	size := opts.PageSize
	if size <= 0 {
		size = 100
	}

	m.mu.RLock()
	all := make([]*Page, 0, len(m.pages))
	for _, p := range m.pages {
		all = append(all, clonePage(p))
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedTime.Equal(all[j].CreatedTime) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedTime.After(all[j].CreatedTime)
	})

	if offset > len(all) {
		offset = len(all)
	}
	end := offset + size
	if end > len(all) {
		end = len(all)
	}

	res := &ListResult{Pages: all[offset:end]}
	if end < len(all) {
		res.HasMore = true
		res.NextCursor = strconv.Itoa(end)
	}
	return res, nil
}

// Updates returns a copy of every UpdatePage call so far.
func (m *Memory) Updates() []UpdateCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UpdateCall, len(m.updates))
	copy(out, m.updates)
	return out
}

// Reads returns how many GetPage calls reached the store.
func (m *Memory) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}

func clonePage(p *Page) *Page {
	cp := *p
	cp.Fields = copyFields(p.Fields)
	return &cp
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
