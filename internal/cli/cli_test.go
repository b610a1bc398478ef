package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-promptkit/pkg/doctor"
	"github.com/goliatone/go-promptkit/pkg/packet"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

var bundled = filepath.Join("..", "..", "templates")

type runResult struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, args []string, options ...Option) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), append([]string{"--log-level", "disabled"}, args...), &stdout, &stderr, options...)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

type stubPrompter map[string]string

func (s stubPrompter) Prompt(_ context.Context, spec schema.ParameterSpec) (string, error) {
	return s[spec.Name], nil
}

func TestListCommand(t *testing.T) {
	t.Run("Should list templates with descriptions", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "list"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Template")
		assert.Contains(t, res.stdout, "audit")
		assert.Contains(t, res.stdout, "Structured code audit of a repository with a time budget")
		assert.Contains(t, res.stdout, "security")
		assert.Contains(t, res.stdout, "readme")
	})

	t.Run("Should fall back to bundled templates", func(t *testing.T) {
		prev, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(prev) })

		res := run(t, []string{"list"})
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "audit")
	})

	t.Run("Should fail for an explicit missing directory", func(t *testing.T) {
		res := run(t, []string{"--templates", filepath.Join(t.TempDir(), "nope"), "list"})
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "templates directory")
	})
}

func TestShowAndPresetsCommands(t *testing.T) {
	t.Run("Should show schema summary and parameters", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "show", "security"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Template: security")
		assert.Contains(t, res.stdout, "Title: Security review")
		assert.Contains(t, res.stdout, "* target: string")
		assert.Contains(t, res.stdout, "  severity_floor: enum [low|medium|high] (default: medium)")
		assert.Contains(t, res.stdout, "Presets: default, internal")
	})

	t.Run("Should list presets", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "presets", "audit"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Presets for 'audit':")
		assert.Contains(t, res.stdout, "  - default")
		assert.Contains(t, res.stdout, "  - quick")
	})

	t.Run("Should report templates without presets", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "presets", "readme"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "No presets found for template 'readme'.")
	})

	t.Run("Should fail for an unknown template", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "show", "nonexistent"})

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "not found")
	})
}

func TestRenderCommand(t *testing.T) {
	t.Run("Should render with overrides", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "render", "security", "--set", "target=payments-api"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.True(t, strings.HasPrefix(res.stdout, "# Security Review: payments-api"), res.stdout)
	})

	t.Run("Should apply presets and params files", func(t *testing.T) {
		params := writeFiles(t, map[string]string{"p.json": `{"repo_path": "/from/file", "depth": "deep"}`})
		res := run(t, []string{"--templates", bundled, "render", "audit", "-p", "quick", "-P", filepath.Join(params, "p.json"), "-s", "depth=normal"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "`/from/file`")
		assert.Contains(t, res.stdout, "Depth: **normal**")
		assert.Contains(t, res.stdout, "Time budget: 15 minutes")
	})

	t.Run("Should switch the output contract with --format", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "render", "audit", "--format", "json"})

		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Respond with JSON only")
		assert.NotContains(t, res.stdout, "Markdown report")
	})

	t.Run("Should reject unknown formats", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "render", "audit", "--format", "xml"})

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "invalid --format")
	})

	t.Run("Should fail when a required parameter is missing", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "render", "security"})

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "target")
	})

	t.Run("Should fail for invalid values", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "render", "audit", "--set", "time_budget_minutes=abc"})

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "time_budget_minutes")
	})

	t.Run("Should prompt for missing required parameters", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "render", "security", "--interactive"},
			WithPrompter(stubPrompter{"target": "ledger"}))

		require.Equal(t, 0, res.code, res.stderr)
		assert.True(t, strings.HasPrefix(res.stdout, "# Security Review: ledger"), res.stdout)
	})

	t.Run("Should write output and a verifiable run packet", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "prompt.md")
		runs := filepath.Join(dir, "runs")

		res := run(t, []string{"--templates", bundled, "render", "readme", "--out", out, "--run-dir", runs})
		require.Equal(t, 0, res.code, res.stderr)
		assert.Empty(t, res.stdout)
		assert.Contains(t, res.stderr, "Output written to: "+out)
		assert.Contains(t, res.stderr, "Run packet created: ")

		written, err := os.ReadFile(out)
		require.NoError(t, err)

		dirs, err := packet.List(runs)
		require.NoError(t, err)
		require.Len(t, dirs, 1)
		packetDir := filepath.Join(runs, dirs[0])
		assert.Contains(t, res.stderr, "Run packet created: "+packetDir)

		p, err := packet.Read(packetDir)
		require.NoError(t, err)
		assert.Equal(t, string(written), p.Output.Text)
		assert.Equal(t, "readme", p.Metadata.Template)

		verify := run(t, []string{"--templates", bundled, "verify", packetDir})
		require.Equal(t, 0, verify.code, verify.stderr)
		assert.Contains(t, verify.stdout, "OK ")

		require.NoError(t, os.WriteFile(filepath.Join(packetDir, packet.PromptFile), []byte("tampered"), 0o644))
		verify = run(t, []string{"--templates", bundled, "verify", packetDir})
		assert.Equal(t, 1, verify.code)
		assert.Contains(t, verify.stderr, "prompt_hash")
	})
}

func TestDoctorCommand(t *testing.T) {
	t.Run("Should pass on bundled templates", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "doctor"})

		require.Equal(t, 0, res.code, res.stdout+res.stderr)
		assert.Contains(t, res.stdout, "PROMPTKIT DOCTOR REPORT")
		assert.Contains(t, res.stdout, "SUMMARY: 3 passed, 0 failed")
		assert.Contains(t, res.stdout, "All checks passed!")
	})

	t.Run("Should check a single template as JSON", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "doctor", "-t", "audit", "--json"})

		require.Equal(t, 0, res.code, res.stderr)
		var report doctor.Report
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
		assert.Equal(t, []string{"audit"}, report.Checked)
		assert.Empty(t, report.Findings)
	})

	t.Run("Should exit non-zero with findings", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"bad/template.md": "Hello {{ who }}",
			"bad/schema.json": `{"type": "object", "properties": {}}`,
		})
		res := run(t, []string{"--templates", dir, "doctor"})

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stdout, "variable_coverage")
		assert.Contains(t, res.stdout, "Some checks failed")
		assert.Empty(t, res.stderr)
	})

	t.Run("Should fail for an unknown template", func(t *testing.T) {
		res := run(t, []string{"--templates", bundled, "doctor", "-t", "nope"})

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "not found")
	})
}

func TestVersionFlag(t *testing.T) {
	res := run(t, []string{"--version"})

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, Version)
}
