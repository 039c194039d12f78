package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/pipeline"
	"github.com/mvp-joe/project-remapper/internal/sources"
)

var (
	sourcesOutput    string
	sourcesDirection string
	sourcesOverwrite bool
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources <input-sources.jar>",
	Short: "Remap the Java sources of a sources jar",
	Long: `Sources rewrites package declarations, imports, type references and member
names of every .java file in a sources jar, moving files whose package
changed. Classes in the jar are remapped as well.

Files that do not parse are copied unchanged with a warning.

Examples:
  # Remap dependency sources to declared names
  remapper sources game-sources.jar --to declared
`,
	Args: cobra.ExactArgs(1),
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().StringVarP(&sourcesOutput, "output", "o", "", "output jar (default <output root>/<mapping identity>/<input name>)")
	sourcesCmd.Flags().StringVar(&sourcesDirection, "to", toDeclared, "target names: runtime or declared")
	sourcesCmd.Flags().BoolVar(&sourcesOverwrite, "overwrite", false, "replace an existing output")
}

func runSources(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	res := proj.resolver()
	m, err := mappingView(res, sourcesDirection)
	if err != nil {
		return err
	}

	output := sourcesOutput
	if output == "" {
		output = proj.defaultOutput(res.Identity(), args[0])
	}

	pl, err := proj.pipeline(pipeline.WithResourceTransformer(sources.Pattern, sources.New(m).Remap))
	if err != nil {
		return err
	}
	defer pl.Close()

	report, err := proj.remap(ctx, pl, pipeline.Request{
		Input:     args[0],
		Output:    output,
		Mapping:   m,
		Overwrite: sourcesOverwrite || proj.cfg.Remap.Overwrite,
	}, res.Identity())
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}
