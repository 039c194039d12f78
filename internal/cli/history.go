package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/ledger"
)

var (
	historyLimit  int
	historyOutput string
)

// errLedgerDisabled is returned by history when ledger.enabled is false.
var errLedgerDisabled = errors.New("run ledger is disabled (ledger.enabled: false)")

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent remap runs",
	Long: `History lists remap runs recorded in the project's run ledger, newest first.

Examples:
  remapper history --limit 5
  remapper history --output .remapper/remapped/named/mod.jar
`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&historyOutput, "output", "", "only show runs that wrote this output")
}

func runHistory(cmd *cobra.Command, args []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	if proj.ledger == nil {
		return errLedgerDisabled
	}

	var runs []*ledger.Run
	if historyOutput != "" {
		abs, err := filepath.Abs(historyOutput)
		if err != nil {
			return err
		}
		runs, err = proj.ledger.ForOutput(abs)
		if err != nil {
			return err
		}
		if len(runs) > historyLimit {
			runs = runs[:historyLimit]
		}
	} else {
		runs, err = proj.ledger.Recent(historyLimit)
		if err != nil {
			return err
		}
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	fmt.Println(renderRuns(runs, time.Now()))
	return nil
}

// renderRuns formats runs as a table, with start times relative to now.
func renderRuns(runs []*ledger.Run, now time.Time) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Run", "Started", "Status", "Input", "Output", "Mapping", "Classes", "Duration"})
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		status := string(r.Status)
		if r.Error != "" {
			status += ": " + r.Error
		}
		tbl.AppendRow(table.Row{
			id,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			status,
			filepath.Base(r.Input),
			filepath.Base(r.Output),
			r.Mapping,
			fmt.Sprintf("%s/%s", humanize.Comma(int64(r.ClassesChanged)), humanize.Comma(int64(r.Classes))),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d runs", len(runs))})
	return tbl.Render()
}
