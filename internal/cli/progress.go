package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/project-remapper/internal/pipeline"
)

// CLIProgressReporter implements pipeline.ProgressReporter with a progress bar.
type CLIProgressReporter struct {
	quiet    bool
	entryBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet}
}

// reporter returns the pipeline reporter for the --quiet setting.
func reporter() pipeline.ProgressReporter {
	if quietFlag {
		return pipeline.NoOpProgressReporter{}
	}
	return NewCLIProgressReporter(false)
}

func (c *CLIProgressReporter) OnOpened(input string, entries int) {
	if c.quiet {
		return
	}
	log.Printf("Remapping %s (%s entries)\n", input, humanize.Comma(int64(entries)))

	c.entryBar = progressbar.NewOptions(entries,
		progressbar.OptionSetDescription("Remapping entries"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("entries/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// OnEntryProcessed may run on several workers at once; the bar locks
// internally.
func (c *CLIProgressReporter) OnEntryProcessed(name string) {
	if c.quiet {
		return
	}
	if c.entryBar != nil {
		c.entryBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnWritten(output string, entries int) {
	if c.quiet {
		return
	}
	if c.entryBar != nil {
		c.entryBar.Finish()
		c.entryBar = nil
	}
	size := "unknown size"
	if info, err := os.Stat(output); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	log.Printf("Wrote %s entries (%s)\n", humanize.Comma(int64(entries)), size)
}

func (c *CLIProgressReporter) OnVerified(output string) {
	if c.quiet {
		return
	}
	log.Println("Output verified")
}

// printReport prints the summary of a finished run.
func printReport(report *pipeline.Report) {
	if quietFlag {
		return
	}
	if report.Skipped {
		fmt.Printf("✓ %s is up to date\n", report.Output)
		return
	}
	fmt.Printf("✓ Remapped %s -> %s in %s\n", report.Input, report.Output, report.Duration.Round(time.Millisecond))
	fmt.Printf("  Classes:   %s (%s changed)\n", humanize.Comma(int64(report.Classes)), humanize.Comma(int64(report.ClassesChanged)))
	fmt.Printf("  Resources: %s (%s changed)\n", humanize.Comma(int64(report.Resources)), humanize.Comma(int64(report.ResourcesChanged)))
	if len(report.Dropped) > 0 {
		fmt.Printf("  Dropped:   %v\n", report.Dropped)
	}
	if len(report.ClasspathErrors) > 0 {
		fmt.Printf("  Classpath: %d jar(s) could not be read\n", len(report.ClasspathErrors))
	}
}
