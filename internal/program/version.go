package program

// Version constants stamped on journal runs.
const (
	// FormatVersion is the compiled program format version.
	FormatVersion = "1"

	// EngineVersion is the ncd engine version.
	EngineVersion = "0.1.0"
)
