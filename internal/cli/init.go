package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/config"
)

var (
	initForce    bool
	initDeclared string
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .remapper/config.yml",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "replace an existing config file")
	initCmd.Flags().StringVar(&initDeclared, "declared", "", "declared mapping file to configure")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := rootDirectory()
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Mappings.Declared = initDeclared

	path, err := config.Save(root, cfg, initForce)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s\n", path)
	return nil
}
