package model

// Writer persists or forwards a finished report.
type Writer interface {
	// Write delivers rep. Implementations must not modify it.
	Write(rep *Report) error

	// Name identifies the writer in logs.
	Name() string

	// Close releases connections held by the writer.
	Close() error
}
