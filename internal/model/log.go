package model

// LogEntry is an append-only side record written by every pipeline
// stage. It is never read back by the pipeline itself.
type LogEntry struct {
	TaskID    string   `json:"task_id"`
	Level     LogLevel `json:"log_level"`
	Timestamp string   `json:"timestamp"`
	Message   string   `json:"log_message"`
}
