package model

// Song status, advanced by the pipeline one stage at a time.
type SongStatus string

const (
	SongStatusCreated         SongStatus = "created"
	SongStatusMelodyGenerated SongStatus = "melody_generated"
	SongStatusVoiceGenerated  SongStatus = "voice_generated"
	SongStatusSongCombined    SongStatus = "song_combined"
	SongStatusCoverGenerated  SongStatus = "cover_generated"
	SongStatusIndexed         SongStatus = "song_indexed"
	SongStatusFailed          SongStatus = "failed"
)

// Pipeline run states tracked by the runner.
type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateFailed    RunState = "failed"
	RunStateCompleted RunState = "completed"
)

// Log levels for pipeline execution log entries.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelError LogLevel = "ERROR"
)
