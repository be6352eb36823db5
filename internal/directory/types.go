package directory

// Profile is one person as returned by the directory. Values are copied out of
// the feed and never mutated afterwards.
type Profile struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Title       string `json:"title,omitempty"`
}

// SearchResult is one page of a directory search. Profiles keep the order the
// directory returned them in; TotalCount is the directory's own count and may
// exceed len(Profiles) when results are paged.
type SearchResult struct {
	Query      string    `json:"query"`
	TotalCount int       `json:"total_count"`
	Profiles   []Profile `json:"profiles"`
}
