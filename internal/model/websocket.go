package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage is the base envelope exchanged with subscribers of a song's
// pipeline run.
type WSMessage struct {
	Type   string `json:"type"`
	SongID string `json:"songId,omitempty"`
}

// WSProgressMessage reports the stage the pipeline is currently in.
type WSProgressMessage struct {
	Type     string     `json:"type"`
	SongID   string     `json:"songId"`
	State    RunState   `json:"state"`
	Stage    string     `json:"stage"`
	Status   SongStatus `json:"status"`
	Progress int        `json:"progress"`
}

// WSCompleteMessage reports a finished pipeline run.
type WSCompleteMessage struct {
	Type   string     `json:"type"`
	SongID string     `json:"songId"`
	State  RunState   `json:"state"`
	Status SongStatus `json:"status"`
}

// WSErrorMessage reports a failed pipeline run. Status carries the
// transient failed marker; the stored record keeps the status of the
// last completed stage.
type WSErrorMessage struct {
	Type   string     `json:"type"`
	SongID string     `json:"songId"`
	State  RunState   `json:"state"`
	Status SongStatus `json:"status"`
	Stage  string     `json:"stage"`
	Error  string     `json:"error"`
}
