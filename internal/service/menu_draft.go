package service

import (
	"strings"
	"sync"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// MenuDraft is the editable menu list behind the page form. It is view state
// derived from the page snapshot and the fetched menu collection.
type MenuDraft struct {
	mu        sync.Mutex
	items     []domain.MenuItem
	populated bool
}

// NewMenuDraft returns an empty draft.
func NewMenuDraft() *MenuDraft {
	return &MenuDraft{}
}

// Add appends a trimmed name. Blank names and case-insensitive duplicates are rejected.
func (d *MenuDraft) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyMenuName
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, item := range d.items {
		if strings.EqualFold(item.Name, name) {
			return ErrDuplicateMenuName
		}
	}
	d.items = append(d.items, domain.MenuItem{Name: name})
	return nil
}

// Remove drops every item whose name matches exactly. It reports whether anything was removed.
func (d *MenuDraft) Remove(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.items[:0]
	removed := false
	for _, item := range d.items {
		if item.Name == name {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	d.items = kept
	return removed
}

// Populate seeds the draft from the page's embedded menu the first time one is
// seen. A non-empty fetched collection always replaces the draft.
func (d *MenuDraft) Populate(page *domain.ServicePage, fetched []domain.MenuItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.populated && page != nil && len(page.Menu) > 0 {
		d.items = append([]domain.MenuItem(nil), page.Menu...)
		d.populated = true
	}
	if len(fetched) > 0 {
		d.items = append([]domain.MenuItem(nil), fetched...)
		d.populated = true
	}
}

// Adopt gives unsaved draft items the IDs of matching persisted items, matched
// case-insensitively by name. Feed it SavePageInput.Menu after a failed save.
func (d *MenuDraft) Adopt(persisted []domain.MenuItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, item := range d.items {
		if item.Persisted() {
			continue
		}
		for _, p := range persisted {
			if p.Persisted() && strings.EqualFold(p.Name, item.Name) {
				d.items[i] = p
				break
			}
		}
	}
}

// Items returns a copy of the draft in order.
func (d *MenuDraft) Items() []domain.MenuItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.MenuItem(nil), d.items...)
}

// Names returns the item names in order.
func (d *MenuDraft) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.items))
	for _, item := range d.items {
		names = append(names, item.Name)
	}
	return names
}
