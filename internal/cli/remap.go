package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/pipeline"
)

var (
	remapOutput    string
	remapDirection string
	remapOverwrite bool
)

// remapCmd represents the remap command
var remapCmd = &cobra.Command{
	Use:   "remap <input.jar>",
	Short: "Remap a jar with the project mappings",
	Long: `Remap rewrites every class of a jar with the project's mappings and writes
the result as a new jar. The input is never modified.

By default declared names are mapped back to runtime names (the reverse of the
intermediate mappings merged with the declared mappings). Use --to declared
for the opposite direction.

Examples:
  # Remap a built mod back to runtime names
  remapper remap build/libs/mod.jar

  # Remap a runtime jar to declared names into a chosen file
  remapper remap game.jar --to declared -o game-named.jar
`,
	Args: cobra.ExactArgs(1),
	RunE: runRemap,
}

func init() {
	rootCmd.AddCommand(remapCmd)
	remapCmd.Flags().StringVarP(&remapOutput, "output", "o", "", "output jar (default <output root>/<mapping identity>/<input name>)")
	remapCmd.Flags().StringVar(&remapDirection, "to", toRuntime, "target names: runtime or declared")
	remapCmd.Flags().BoolVar(&remapOverwrite, "overwrite", false, "replace an existing output")
}

func runRemap(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	res := proj.resolver()
	m, err := mappingView(res, remapDirection)
	if err != nil {
		return err
	}

	output := remapOutput
	if output == "" {
		output = proj.defaultOutput(res.Identity(), args[0])
	}

	pl, err := proj.pipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	report, err := proj.remap(ctx, pl, pipeline.Request{
		Input:     args[0],
		Output:    output,
		Mapping:   m,
		Overwrite: remapOverwrite || proj.cfg.Remap.Overwrite,
	}, res.Identity())
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}
