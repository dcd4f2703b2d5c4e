package model

// MusicStyle is reference data validated at song creation. Immutable
// after creation except via bulk replace.
type MusicStyle struct {
	ID   string `json:"style_id"`
	Name string `json:"style_name"`
}
