// Package cli implements the pk command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	promptkit "github.com/goliatone/go-promptkit"
	"github.com/goliatone/go-promptkit/internal/config"
	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/orchestrator"
)

// Version is reported by pk --version.
const Version = "0.1.0"

// errFindings marks a doctor run that printed its report and failed.
var errFindings = errors.New("doctor: checks failed")

// Option customises the command tree, mostly for tests.
type Option func(*app)

// WithPrompter replaces the terminal prompter used by render --interactive.
func WithPrompter(p orchestrator.Prompter) Option {
	return func(a *app) {
		a.prompter = p
	}
}

type globalFlags struct {
	templates string
	engine    string
	logLevel  string
	logJSON   bool
	config    string
}

// app is the state shared by every command once the root pre-run has
// loaded configuration and the catalog.
type app struct {
	flags    globalFlags
	cfg      *config.Config
	log      logger.Logger
	catalog  *catalog.Catalog
	source   string
	orch     *orchestrator.Orchestrator
	prompter orchestrator.Prompter
}

// NewRootCommand builds the pk command tree.
func NewRootCommand(options ...Option) *cobra.Command {
	a := &app{log: logger.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}

	root := &cobra.Command{
		Use:   "pk",
		Short: "Render, validate and manage prompt templates",
		Long: `pk renders parameterized prompt templates with strict schemas and
deterministic output, and records run packets for reproducibility.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.templates, "templates", "", "Template directory (default \"templates\", bundled templates when absent)")
	flags.StringVar(&a.flags.engine, "engine", "", "Substitution engine (builtin, pongo2)")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error, disabled)")
	flags.BoolVar(&a.flags.logJSON, "log-json", false, "Log as JSON")
	flags.StringVar(&a.flags.config, "config", "", "Config file (default ./"+config.DefaultFile+" when present)")

	root.AddCommand(
		newListCommand(a),
		newShowCommand(a),
		newPresetsCommand(a),
		newRenderCommand(a),
		newDoctorCommand(a),
		newVerifyCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("templates") {
		overrides["templates_dir"] = a.flags.templates
	}
	if flags.Changed("engine") {
		overrides["engine"] = a.flags.engine
	}
	if flags.Changed("log-level") {
		overrides["log.level"] = a.flags.logLevel
	}
	if flags.Changed("log-json") {
		overrides["log.json"] = a.flags.logJSON
	}

	cfg, err := config.Load(ctx, config.Options{File: a.flags.config, Overrides: overrides})
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := logger.ParseLevel(cfg.Log.Level)
	a.log = logger.NewLogger(&logger.Config{
		Level:      level,
		Output:     cmd.ErrOrStderr(),
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	cmd.SetContext(logger.ContextWithLogger(ctx, a.log))

	cat, source, err := a.loadCatalog(ctx)
	if err != nil {
		return err
	}
	a.catalog, a.source = cat, source
	a.log.Debug("catalog loaded", "source", source, "templates", cat.Len())

	a.orch = orchestrator.New(
		orchestrator.WithCatalog(cat),
		orchestrator.WithDefaultEngine(cfg.Engine),
		orchestrator.WithLogger(a.log),
	)
	return nil
}

// loadCatalog reads the configured directory. The default directory falls
// back to the bundled templates when it does not exist.
func (a *app) loadCatalog(ctx context.Context) (*catalog.Catalog, string, error) {
	dir := a.cfg.TemplatesDir
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) && dir == config.Default().TemplatesDir {
			cat, err := promptkit.LoadEmbeddedCatalog(ctx, catalog.WithLogger(a.log))
			return cat, "embedded", err
		}
		return nil, "", fmt.Errorf("templates directory %s: %w", dir, err)
	}
	cat, err := promptkit.LoadCatalog(ctx, dir, catalog.WithLogger(a.log))
	return cat, dir, err
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, options ...Option) int {
	root := NewRootCommand(options...)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
