package ir

// Version constants recorded in the log meta table.
const (
	// LogVersion is the operation log schema version.
	LogVersion = "1"

	// EngineVersion is the sequencer version.
	EngineVersion = "0.1.0"
)
