package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-promptkit/pkg/doctor"
)

func newDoctorCommand(a *app) *cobra.Command {
	var (
		template string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate templates and run health checks",
		Long: `Validate templates and run health checks:
  - schema validity
  - defaults and presets against their schemas
  - variable coverage (no undeclared variables)
  - rendering with every preset
  - golden output drift

Exits with non-zero status if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline, err := a.orch.Pipeline(a.cfg.Engine)
			if err != nil {
				return err
			}
			d := doctor.New(
				doctor.WithPipeline(pipeline),
				doctor.WithConcurrency(a.cfg.Doctor.Concurrency),
				doctor.WithMetaValidation(a.cfg.Doctor.MetaValidation),
				doctor.WithLogger(a.log),
			)

			var names []string
			if template != "" {
				names = []string{template}
			}
			report, err := d.Check(cmd.Context(), a.catalog, names...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				writeReport(out, report)
			}
			if !report.OK() {
				return errFindings
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Validate only a specific template")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func writeReport(w io.Writer, report doctor.Report) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "PROMPTKIT DOCTOR REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	byTemplate := report.ByTemplate()
	for _, name := range report.Checked {
		fmt.Fprintf(w, "Template: %s\n", name)
		fmt.Fprintln(w, strings.Repeat("-", 40))
		findings := byTemplate[name]
		if len(findings) == 0 {
			fmt.Fprintln(w, "  ✓ all checks passed")
		}
		for _, f := range findings {
			fmt.Fprintf(w, "  ✗ %s [%s]: %s\n", f.Check, f.Kind, f.Detail)
		}
		fmt.Fprintln(w)
	}

	failed := len(report.Failing())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "SUMMARY: %d passed, %d failed\n", len(report.Checked)-failed, failed)
	if report.OK() {
		fmt.Fprintln(w, "All checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. Please fix the issues above.")
	}
	fmt.Fprintln(w, rule)
}
