package db

// Guide represents a row in the guides table
type Guide struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Version    string `json:"version"`
	StartKey   string `json:"start_key"`
	ImportedAt int64  `json:"imported_at"` // Unix millis
	KeyCount   int    `json:"key_count"`
}

// Key represents a row in the keys table
type Key struct {
	GuideUUID     string `json:"guide_uuid"`
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	ChildrenCount int    `json:"children_count"`
	FilterCount   int    `json:"filter_count"`
	IsStart       bool   `json:"is_start"`
	Mode          string `json:"mode"` // "fluid" or "strict"
}
