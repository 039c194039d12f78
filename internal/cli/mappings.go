package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/config"
	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/resolver"
	"github.com/mvp-joe/project-remapper/internal/tiny"
)

var (
	exportView   string
	exportOutput string
)

// mappingsCmd groups the mapping inspection commands
var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect the project mappings",
}

var mappingsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configured mapping files and the composed views",
	Args:  cobra.NoArgs,
	RunE:  runMappingsInfo,
}

var mappingsLookupCmd = &cobra.Command{
	Use:   "lookup <class>",
	Short: "Show how a class and its members are renamed",
	Long: `Lookup prints the declared name of a runtime class, or the runtime name of a
declared class, with its field and method mappings. Class names may be given
with dots or slashes.`,
	Args: cobra.ExactArgs(1),
	RunE: runMappingsLookup,
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a mapping view as tiny v2",
	Long: `Export writes one mapping view as a tiny v2 file.

Views:
  declared, intermediate   a configured mapping file
  merged                   runtime to declared names
  target                   declared to runtime names
  via:<group:artifact>     a via namespace to declared names
`,
	Args: cobra.NoArgs,
	RunE: runMappingsExport,
}

func init() {
	rootCmd.AddCommand(mappingsCmd)
	mappingsCmd.AddCommand(mappingsInfoCmd, mappingsLookupCmd, mappingsExportCmd)
	mappingsExportCmd.Flags().StringVar(&exportView, "view", "merged", "view to export")
	mappingsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

// mappingStats counts the entries of a set.
type mappingStats struct {
	classes, fields, methods, params int
}

func countMappings(s *mapping.MappingSet) mappingStats {
	var st mappingStats
	for _, c := range s.Classes() {
		st.classes++
		st.fields += len(c.Fields())
		for _, m := range c.Methods() {
			st.methods++
			st.params += len(m.Params())
		}
	}
	return st
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}

func runMappingsInfo(cmd *cobra.Command, args []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	res := proj.resolver()
	tbl := newTable()
	tbl.AppendHeader(table.Row{"View", "Source", "Namespaces", "Classes", "Fields", "Methods", "Params", "Size"})

	addRow := func(view, source string, set *mapping.MappingSet) {
		st := countMappings(set)
		size := ""
		if source != "" {
			if info, err := os.Stat(source); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
		}
		tbl.AppendRow(table.Row{
			view, source, fmt.Sprintf("%s -> %s", set.From(), set.To()),
			humanize.Comma(int64(st.classes)), humanize.Comma(int64(st.fields)),
			humanize.Comma(int64(st.methods)), humanize.Comma(int64(st.params)), size,
		})
	}

	cfg := proj.cfg
	if set, err := res.Declared(); err != nil {
		return err
	} else if set != nil {
		addRow("declared", config.ResolvePath(proj.root, cfg.Mappings.Declared), set)
	}
	if set, err := res.Intermediate(); err != nil {
		return err
	} else if set != nil {
		addRow("intermediate", config.ResolvePath(proj.root, cfg.Mappings.Intermediate), set)
	}
	for _, via := range cfg.Mappings.Via {
		set, err := res.Via(via.Coordinate)
		if err != nil {
			return err
		}
		addRow("via:"+via.Coordinate, config.ResolvePath(proj.root, via.Path), set)
	}

	if merged, ok, err := res.Merged(); err != nil {
		return err
	} else if ok {
		addRow("merged", "", merged)
		target, err := res.Target()
		if err != nil {
			return err
		}
		addRow("target", "", target)
	}

	if tbl.Length() == 0 {
		fmt.Println("No mappings configured (set mappings.declared in .remapper/config.yml)")
		return nil
	}
	fmt.Println(tbl.Render())
	if id := res.Identity(); id != "" {
		fmt.Printf("\nMapping identity: %s\n", id)
	}
	return nil
}

func runMappingsLookup(cmd *cobra.Command, args []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	name := strings.ReplaceAll(args[0], ".", "/")
	res := proj.resolver()

	for _, direction := range []string{toDeclared, toRuntime} {
		set, err := mappingView(res, direction)
		if err != nil {
			return err
		}
		if c, ok := set.Class(name); ok {
			printClassMapping(set, c)
			return nil
		}
	}
	return fmt.Errorf("class '%s' not found in the mappings", args[0])
}

func printClassMapping(set *mapping.MappingSet, c *mapping.ClassMapping) {
	fmt.Printf("%s (%s) -> %s (%s)\n", c.From, set.From(), set.MapClassName(c.From), set.To())
	if c.Comment != "" {
		fmt.Printf("  %s\n", c.Comment)
	}

	if len(c.Fields()) == 0 && len(c.Methods()) == 0 {
		return
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Kind", "Name", "Descriptor", "Mapped"})
	for _, f := range c.Fields() {
		tbl.AppendRow(table.Row{"field", f.From, f.Desc, f.Mapped()})
	}
	for _, m := range c.Methods() {
		tbl.AppendRow(table.Row{"method", m.From, m.Desc, m.Mapped()})
		for _, p := range m.Params() {
			tbl.AppendRow(table.Row{"  param", fmt.Sprintf("%d:%s", p.Index, p.From), "", p.To})
		}
	}
	fmt.Println(tbl.Render())
}

// exportSet resolves an export view name.
func exportSet(res *resolver.Resolver, view string) (*mapping.MappingSet, error) {
	switch {
	case view == "declared":
		return requireSet(res.Declared())(resolver.RoleDeclared)
	case view == "intermediate":
		return requireSet(res.Intermediate())(resolver.RoleIntermediate)
	case view == "merged":
		return mappingView(res, toDeclared)
	case view == "target":
		return mappingView(res, toRuntime)
	case strings.HasPrefix(view, "via:"):
		return res.SourceVia(strings.TrimPrefix(view, "via:"))
	default:
		return nil, fmt.Errorf("unknown view '%s'", view)
	}
}

func requireSet(set *mapping.MappingSet, err error) func(resolver.Role) (*mapping.MappingSet, error) {
	return func(role resolver.Role) (*mapping.MappingSet, error) {
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, &resolver.MissingMappingError{Role: role}
		}
		return set, nil
	}
}

func runMappingsExport(cmd *cobra.Command, args []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	set, err := exportSet(proj.resolver(), exportView)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return tiny.Write(os.Stdout, set)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOutput, err)
	}
	if err := tiny.Write(f, set); err != nil {
		f.Close()
		os.Remove(exportOutput)
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	if !quietFlag {
		fmt.Printf("✓ Exported %s mappings to %s\n", exportView, exportOutput)
	}
	return nil
}
