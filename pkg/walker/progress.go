package walker

// Progress carries running counts for an in-flight scan.
type Progress struct {
	Visited   int
	Processed int
	Skipped   int
	Failed    int
}

// ProgressSink receives a notification after every visited file. The scan is
// fully usable without one; callers that don't care pass nil. Front-ends
// (GUI progress bars) implement this to mirror the scan state.
type ProgressSink interface {
	Update(current string, progress Progress)
}
