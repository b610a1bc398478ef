package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

const descriptionWidth = 60

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates := a.catalog.Templates()
			if len(templates) == 0 {
				return fmt.Errorf("no templates found in %s", a.source)
			}

			width := len("Template")
			for _, tpl := range templates {
				width = max(width, len(tpl.Name))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-*s  Description\n", width, "Template")
			fmt.Fprintln(out, strings.Repeat("-", width+2+50))
			for _, tpl := range templates {
				fmt.Fprintf(out, "%-*s  %s\n", width, tpl.Name, truncate(tpl.Description(), descriptionWidth))
			}
			return nil
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <template>",
		Short: "Show details for a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Template: %s\n", tpl.Name)
			fmt.Fprintf(out, "Path: %s\n", filepath.Join(a.source, tpl.Name))
			fmt.Fprintf(out, "Version: %s\n\n", tpl.Version())

			if tpl.Schema == nil {
				fmt.Fprintf(out, "Schema: invalid (%v)\n", tpl.SchemaErr)
				return nil
			}
			fmt.Fprintln(out, "Schema:")
			fmt.Fprintf(out, "  Title: %s\n", orNA(tpl.Schema.Title))
			fmt.Fprintf(out, "  Description: %s\n", orNA(tpl.Schema.Description))

			if params := tpl.Schema.Parameters(); len(params) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Parameters:")
				for _, spec := range params {
					fmt.Fprintf(out, "  %s\n", parameterLine(spec))
					if spec.Description != "" {
						fmt.Fprintf(out, "      %s\n", spec.Description)
					}
				}
			}

			if presets := tpl.PresetNames(); len(presets) > 0 {
				fmt.Fprintf(out, "\nPresets: %s\n", strings.Join(presets, ", "))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Files:")
			fmt.Fprintf(out, "  %s: %s\n", catalog.BodyFile, filepath.Join(a.source, tpl.Name, catalog.BodyFile))
			fmt.Fprintf(out, "  %s: %s\n", catalog.SchemaFile, filepath.Join(a.source, tpl.Name, catalog.SchemaFile))
			return nil
		},
	}
}

func newPresetsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets <template>",
		Short: "List available presets for a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := tpl.PresetNames()
			if len(names) == 0 {
				fmt.Fprintf(out, "No presets found for template '%s'.\n", tpl.Name)
				return nil
			}
			fmt.Fprintf(out, "Presets for '%s':\n", tpl.Name)
			for _, name := range names {
				fmt.Fprintf(out, "  - %s\n", name)
			}

			broken := make([]string, 0, len(tpl.PresetErrs))
			for name := range tpl.PresetErrs {
				broken = append(broken, name)
			}
			sort.Strings(broken)
			for _, name := range broken {
				a.log.Warn("preset could not be read", "template", tpl.Name, "preset", name, "error", tpl.PresetErrs[name])
			}
			return nil
		},
	}
}

func parameterLine(spec schema.ParameterSpec) string {
	marker := " "
	if spec.Required {
		marker = "*"
	}
	line := fmt.Sprintf("%s %s: %s", marker, spec.Name, spec.Type)
	if len(spec.Constraints.Enum) > 0 {
		line += " [" + strings.Join(spec.Constraints.Enum, "|") + "]"
	}
	if spec.HasDefault {
		line += " (default: " + formatDefault(spec.Default) + ")"
	}
	return line
}

func formatDefault(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
