package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sghaida/odic/resolver"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "digen: %v\n", err)
		os.Exit(1)
	}
}

// app carries the resolved configuration into the subcommands.
type app struct {
	cfg    Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: slog.New(slog.DiscardHandler)}

	var envFile string
	root := &cobra.Command{
		Use:           "digen",
		Short:         "Generates dependency-injection containers from descriptor files",
		Long:          `digen analyses a YAML or JSON descriptor file, reports every dependency problem it finds and writes a Go file that builds the container with the odic runtime.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := LoadConfig(files...)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}
			a.cfg = cfg
			a.log = cfg.newLogger(stderr).With("component", "digen")
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "environment file to load (default .env)")
	root.PersistentFlags().Bool("allow-dynamic", false, "bind requirements nothing provides to dynamic services")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text or json")

	root.AddCommand(newGenerateCmd(a), newCheckCmd(a))
	return root
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	if flags.Changed("allow-dynamic") {
		v, err := flags.GetBool("allow-dynamic")
		if err != nil {
			return err
		}
		cfg.AllowDynamic = v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	if flags.Changed("log-format") {
		v, _ := flags.GetString("log-format")
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			return fmt.Errorf("--log-format: unknown format %q", v)
		}
		cfg.LogFormat = v
	}
	return nil
}

// =============================================================================
// GENERATE COMMAND
// =============================================================================

func newGenerateCmd(a *app) *cobra.Command {
	var specPath, outPath string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Analyse a descriptor file and write the container source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd.Context(), specPath, outPath)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to container.yaml")
	cmd.Flags().StringVar(&outPath, "out", "", "output .gen.go file path")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) generate(ctx context.Context, specPath, outPath string) error {
	spec, raw, descriptors, err := a.load(specPath)
	if err != nil {
		return err
	}
	if a.cfg.AllowDynamic {
		spec.AllowDynamic = true
	}

	plan, err := a.analyze(ctx, specPath, spec, descriptors)
	if err != nil {
		return err
	}

	diPath, resolverPath, err := runtimeImports(filepath.Dir(outPath))
	if err != nil {
		return err
	}
	required := []GoImport{
		{Path: "context"},
		{Name: "di", Path: diPath},
		{Name: "resolver", Path: resolverPath},
	}
	for _, imp := range spec.Imports {
		required = append(required, GoImport{Name: imp.Name, Path: imp.Path})
	}
	imports := mergeImports(required, readImportsFromExistingOut(outPath))

	src, err := render(spec, descriptors, specPath, raw, imports)
	if err != nil {
		return err
	}
	if err := writeFormatted(outPath, src); err != nil {
		return err
	}

	a.log.Info("container generated", "out", outPath, "steps", len(plan.Steps), "dynamic", len(plan.Dynamic))
	fmt.Fprintf(a.stdout, "wrote %s (%d services, %d dynamic)\n", filepath.ToSlash(outPath), len(plan.Steps), len(plan.Dynamic))
	return nil
}

// =============================================================================
// CHECK COMMAND
// =============================================================================

func newCheckCmd(a *app) *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Analyse a descriptor file and print the construction plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), specPath)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to container.yaml")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func (a *app) check(ctx context.Context, specPath string) error {
	spec, _, descriptors, err := a.load(specPath)
	if err != nil {
		return err
	}
	if a.cfg.AllowDynamic {
		spec.AllowDynamic = true
	}
	plan, err := a.analyze(ctx, specPath, spec, descriptors)
	if err != nil {
		return err
	}
	printPlan(a.stdout, spec.Name, plan)
	return nil
}

func printPlan(w io.Writer, name string, plan *resolver.Plan) {
	fmt.Fprintf(w, "%s: %d services\n", name, len(plan.Steps))

	fmt.Fprintln(w, "construction order:")
	for i, s := range plan.Steps {
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, s.Service, s.Descriptor.Lifetime)
	}

	fmt.Fprintln(w, "disposal order:")
	for i, id := range plan.DisposalOrder() {
		fmt.Fprintf(w, "  %d. %s\n", i+1, id)
	}

	if len(plan.Dynamic) > 0 {
		fmt.Fprintln(w, "dynamic:")
		for _, id := range plan.Dynamic {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	}
}

// =============================================================================
// SHARED
// =============================================================================

func (a *app) load(specPath string) (*ContainerSpec, []byte, []resolver.Descriptor, error) {
	spec, raw, err := loadSpec(specPath)
	if err != nil {
		return nil, nil, nil, err
	}
	descriptors, err := spec.Descriptors()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("spec %s: %w", specPath, err)
	}
	return spec, raw, descriptors, nil
}

// analyze runs the resolver and prints every diagnostic to stderr. A failed
// analysis is reported as a short error; the details are already printed.
func (a *app) analyze(ctx context.Context, specPath string, spec *ContainerSpec, descriptors []resolver.Descriptor) (*resolver.Plan, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	plan, err := resolver.Analyze(ctx, descriptors,
		resolver.WithAllowDynamic(spec.AllowDynamic),
		resolver.WithLogger(a.log),
	)
	if err != nil {
		var ae *resolver.AnalysisError
		if !errors.As(err, &ae) {
			return nil, err
		}
		fmt.Fprint(a.stderr, ae.Diagnostics.String())
		return nil, &cmdError{msg: fmt.Sprintf("%s: analysis failed with %d error(s)", filepath.ToSlash(specPath), len(ae.Unwrap()))}
	}
	fmt.Fprint(a.stderr, plan.Diagnostics.String())
	return plan, nil
}
