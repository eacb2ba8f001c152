package domain

import "time"

// ServicePage is a provider's public page. There is at most one per provider.
type ServicePage struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Content   string     `json:"content"`
	Logo      string     `json:"logo,omitempty"`
	Banner    string     `json:"banner,omitempty"`
	Menu      []MenuItem `json:"menu,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MenuItem is a named entry on a service page menu.
// ID is zero until the backend has created the item.
type MenuItem struct {
	ID            int64  `json:"id,omitempty"`
	ServicePageID int64  `json:"service_page_id,omitempty"`
	UserID        int64  `json:"user_id,omitempty"`
	Name          string `json:"name"`
}

// Persisted reports whether the backend has assigned the item an identifier.
func (m MenuItem) Persisted() bool {
	return m.ID != 0
}
