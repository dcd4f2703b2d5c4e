package model

import "time"

// Song represents one song-generation request and its lifecycle state.
// Artifact reference fields are set by the stage that produces them and
// are absent until that stage has completed.
type Song struct {
	ID           string     `json:"id"`
	Title        string     `json:"songTitle"`
	Text         string     `json:"songText"`
	Description  string     `json:"description,omitempty"`
	Keywords     string     `json:"keywords,omitempty"`
	MusicStyleID string     `json:"musicStyleId"`
	Status       SongStatus `json:"status"`

	// Blob keys, one per completed stage.
	MelodyFileName string `json:"melodyFileName,omitempty"`
	VoiceFileName  string `json:"voiceFileName,omitempty"`
	FinalSongName  string `json:"finalSongName,omitempty"`
	SongCoverName  string `json:"songCoverName,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	Planned   bool       `json:"planned"`
	PlannedAt *time.Time `json:"plannedAt,omitempty"`

	MelodyGeneratedAt *time.Time `json:"melodyGeneratedAt,omitempty"`
	VoiceGeneratedAt  *time.Time `json:"voiceGeneratedAt,omitempty"`
	SongCombinedAt    *time.Time `json:"songCombinedAt,omitempty"`
	CoverGeneratedAt  *time.Time `json:"coverGeneratedAt,omitempty"`
	SongIndexedAt     *time.Time `json:"songIndexedAt,omitempty"`

	Error *string `json:"error,omitempty"`
}

// GenerateSongRequest is the payload for POST /generate_song.
type GenerateSongRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=120"`
	Text         string `json:"text" validate:"required,min=1"`
	Description  string `json:"description,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	MusicStyleID string `json:"music_style_id" validate:"required"`
}

// MaxSongTextLength bounds the lyric text accepted at creation.
const MaxSongTextLength = 200

// SongInfo is a song record hydrated with stream URLs and the resolved
// style name, as returned by the read endpoints.
type SongInfo struct {
	SongInfoID  string     `json:"song_info_id"`
	SongTitle   string     `json:"song_title"`
	SongText    string     `json:"song_text"`
	Description string     `json:"description"`
	Keywords    string     `json:"keywords"`
	Status      SongStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	MusicStyle  string     `json:"music_style"`
	MelodyURL   string     `json:"melody_url"`
	VoiceURL    string     `json:"voice_url"`
	SongURL     string     `json:"song_url"`
	ImageURL    string     `json:"image_url"`
}

// UpdateStylesRequest is the payload for PUT /music_styles.
type UpdateStylesRequest struct {
	Styles []string `json:"styles" validate:"required,min=1,dive,required"`
}
