package pipeline

// ProgressReporter receives callbacks as a run moves through its phases.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnOpened is called once the input is open and its entries are known.
	OnOpened(input string, entries int)

	// OnEntryProcessed is called after each entry is transformed or copied.
	// It may be called from several goroutines.
	OnEntryProcessed(name string)

	// OnWritten is called after the output container is complete.
	OnWritten(output string, entries int)

	// OnVerified is called after the output passed verification.
	OnVerified(output string)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnOpened(input string, entries int)   {}
func (NoOpProgressReporter) OnEntryProcessed(name string)         {}
func (NoOpProgressReporter) OnWritten(output string, entries int) {}
func (NoOpProgressReporter) OnVerified(output string)             {}
