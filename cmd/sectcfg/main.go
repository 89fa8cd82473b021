// FILE: lixenwraith/sectcfg/cmd/sectcfg/main.go
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/sectcfg"
)

var version = "0.1.0"

type loadFlags struct {
	format   string
	sections []string
	evalEnv  bool
	verbose  bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "sectcfg",
		Short: "Inspect and convert sectioned configuration files",
		Long: `sectcfg reads INI, YAML, TOML and JSON configuration files into raw sections
and prints or converts them. Files are merged in the order given.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sectcfg v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
		},
	})

	root.AddCommand(sectionsCmd(), showCmd(), convertCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "auto", "Input format: auto, ini, yaml, toml, json")
	cmd.Flags().StringSliceVar(&f.sections, "section", nil, "Only read these sections (repeatable)")
	cmd.Flags().BoolVar(&f.evalEnv, "env", false, "Expand ${VAR} references in files")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log loader diagnostics to stderr")
}

func (f *loadFlags) load(files []string) (*sectcfg.RawTree, error) {
	logger := zap.NewNop()
	if f.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()
	}

	opts := sectcfg.LoaderOptions{Logger: logger}
	var loader sectcfg.RawLoader
	switch f.format {
	case "auto":
		loader = sectcfg.NewAutoLoader(opts)
	case "ini":
		loader = sectcfg.NewINILoader(opts)
	case "yaml", "yml":
		loader = sectcfg.NewYAMLLoader(opts)
	case "toml":
		loader = sectcfg.NewTOMLLoader(opts)
	case "json":
		loader = sectcfg.NewJSONLoader(opts)
	default:
		return nil, fmt.Errorf("unknown input format %q", f.format)
	}

	req := sectcfg.LoadRequest{EvalEnv: f.evalEnv}
	var err error
	if req.Files, err = sectcfg.Select(files); err != nil {
		return nil, err
	}
	if len(f.sections) > 0 {
		if req.Sections, err = sectcfg.Select(f.sections); err != nil {
			return nil, err
		}
	}
	return loader.Load(req)
}

func sectionsCmd() *cobra.Command {
	var flags loadFlags
	cmd := &cobra.Command{
		Use:   "sections <file>...",
		Short: "List the sections found in each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := flags.load(args)
			if err != nil {
				return err
			}
			for _, ft := range tree.Files() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", ft.Label)
				for _, s := range ft.Sections() {
					name := s.Name
					if name == "" {
						name = "(unscoped)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %d key(s)\n", name, s.Len())
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func showCmd() *cobra.Command {
	var flags loadFlags
	cmd := &cobra.Command{
		Use:   "show <file>...",
		Short: "Print every raw value as file:section.key = value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := flags.load(args)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tree.String())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func convertCmd() *cobra.Command {
	var (
		flags  loadFlags
		to     string
		output string
	)
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Merge files and write them in another format",
		Example: `  sectcfg convert base.ini local.ini --to yaml
  sectcfg convert app.yaml --to ini -o app.ini`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := flags.load(args)
			if err != nil {
				return err
			}
			format := sectcfg.Format(to)
			if to == "" && output != "" {
				format = sectcfg.FormatFor(output)
			}
			data, err := sectcfg.MarshalTree(tree, format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Output format: ini, yaml, toml (default from --output, else ini)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
