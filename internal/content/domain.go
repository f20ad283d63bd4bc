package content

import "time"

// Block is one database stored content fragment rendered by the marketing
// frontend. Sections group blocks per page region, e.g. "home.hero".
type Block struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Section   string    `json:"section"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Locale    string    `json:"locale"`
	Published bool      `json:"published"`
	UpdatedBy int64     `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
