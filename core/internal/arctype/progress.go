package arctype

// ProgressEvent represents a progress update during archive builds or extraction.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of payload bytes completed so far.
	BytesDone uint64

	// FilesDone is the number of entries completed.
	FilesDone int

	// FilesTotal is the total number of entries.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for build and extraction.
const (
	// StageStaging indicates payloads are being read, compressed and encrypted.
	StageStaging ProgressStage = iota

	// StageCommitting indicates the archive bytes are being written.
	StageCommitting

	// StageExtracting indicates entries are being written to disk.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageStaging:
		return "staging"
	case StageCommitting:
		return "committing"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. Calls are made synchronously
// from the goroutine running the operation.
type ProgressFunc func(ProgressEvent)
