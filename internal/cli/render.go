package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/orchestrator"
	"github.com/goliatone/go-promptkit/pkg/render"
)

type renderFlags struct {
	preset      string
	params      string
	overrides   []string
	out         string
	format      string
	runDir      string
	interactive bool
}

func newRenderCommand(a *app) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with parameters",
		Long: `Render a template with parameters.

Parameters are merged in order (later overrides earlier):
  1. Schema defaults
  2. Preset file (--preset)
  3. Params file (--params)
  4. CLI overrides (--set)`,
		Example: `  pk render audit --preset quick
  pk render security --params my_params.yaml --set target=payments-api
  pk render readme --out prompt.md --run-dir ./runs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.preset, "preset", "p", "", "Preset name to use")
	f.StringVarP(&flags.params, "params", "P", "", "YAML or JSON file with parameters")
	f.StringArrayVarP(&flags.overrides, "set", "s", nil, "Override parameter: key=value (repeatable)")
	f.StringVarP(&flags.out, "out", "o", "", "Write output to file instead of stdout")
	f.StringVarP(&flags.format, "format", "f", "", "Override output_format ("+strings.Join(render.Formats(), ", ")+")")
	f.StringVar(&flags.runDir, "run-dir", "", "Emit a run packet under this directory")
	f.BoolVar(&flags.interactive, "interactive", false, "Prompt for required parameters no layer provides")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, name string, flags renderFlags) error {
	ctx := cmd.Context()

	if flags.format != "" && !slices.Contains(render.Formats(), flags.format) {
		return fmt.Errorf("invalid --format %q (choose from %s)", flags.format, strings.Join(render.Formats(), ", "))
	}

	req := orchestrator.Request{
		Template:  name,
		Preset:    flags.preset,
		Overrides: flags.overrides,
		Format:    flags.format,
		RunDir:    flags.runDir,
	}
	if req.RunDir == "" {
		req.RunDir = a.cfg.RunDir
	}
	req.Emit = req.RunDir != ""

	if flags.params != "" {
		values, err := catalog.LoadParamsFile(ctx, flags.params)
		if err != nil {
			return fmt.Errorf("loading params file: %w", err)
		}
		req.ParamsFile = values
	}
	if flags.interactive {
		req.Prompter = a.prompter
		if req.Prompter == nil {
			req.Prompter = newSurveyPrompter()
		}
	}

	result, err := a.orch.Render(ctx, req)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	switch {
	case result.PacketErr != nil:
		fmt.Fprintf(stderr, "Warning: failed to create run packet: %v\n", result.PacketErr)
	case result.Packet != nil:
		fmt.Fprintf(stderr, "Run packet created: %s\n", result.Packet.Dir)
	}

	if flags.out != "" {
		if err := os.WriteFile(flags.out, []byte(result.Output.Text), 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(stderr, "Output written to: %s\n", flags.out)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Output.Text)
	return nil
}
