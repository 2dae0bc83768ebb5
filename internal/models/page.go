package models

// Page is one slice of an ordered, paginated listing
type Page[T any] struct {
	Count       int64 `json:"count"`
	NumPages    int   `json:"num_pages"`
	CurrentPage int   `json:"current_page"`
	Results     []T   `json:"results"`
}
