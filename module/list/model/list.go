package model

import "time"

// List is a shared collaborative list. Members gates both mutation
// authorization and room subscription; the owner is always a member.
type List struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	OwnerID string   `json:"ownerId"`
	Members []string `json:"members"` // insertion order, owner first

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasMember reports whether user may read/write the list.
func (l *List) HasMember(user string) bool {
	for _, m := range l.Members {
		if m == user {
			return true
		}
	}
	return false
}

// Item belongs to exactly one list and dies with it.
type Item struct {
	ID        string         `json:"id"`
	ListID    string         `json:"listId"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"` // opaque client data
	Completed bool           `json:"completed"`
	CreatedAt time.Time      `json:"createdAt"`
}
