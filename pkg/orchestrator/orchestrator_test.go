package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/orchestrator"
	"github.com/goliatone/go-promptkit/pkg/packet"
	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/resolve"
	"github.com/goliatone/go-promptkit/pkg/schema"
	"github.com/goliatone/go-promptkit/pkg/testsupport"
)

func newOrchestrator(t *testing.T, options ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()

	cat, err := catalog.LoadDir(testsupport.Context(), filepath.Join("..", "..", "templates"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return orchestrator.New(append([]orchestrator.Option{orchestrator.WithCatalog(cat)}, options...)...)
}

func TestOrchestrator_RenderDefaults(t *testing.T) {
	orch := newOrchestrator(t)

	result, err := orch.Render(testsupport.Context(), orchestrator.Request{Template: "audit"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Version != "1.0.0" {
		t.Fatalf("version = %q", result.Version)
	}
	if result.Output.Format != render.FormatMarkdown {
		t.Fatalf("format = %q", result.Output.Format)
	}
	if !strings.Contains(result.Output.Text, "Role & Mission") {
		t.Fatalf("unexpected output:\n%s", result.Output.Text)
	}
	if result.Packet != nil {
		t.Fatalf("packet written without Emit")
	}
}

func TestOrchestrator_LayerPrecedence(t *testing.T) {
	orch := newOrchestrator(t)

	result, err := orch.Render(testsupport.Context(), orchestrator.Request{
		Template:   "audit",
		Preset:     "quick",
		ParamsFile: map[string]any{"depth": "normal", "repo_path": "/srv/app"},
		Overrides:  []string{"depth=deep"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	checks := map[string]any{
		"depth":               "deep",
		"repo_path":           "/srv/app",
		"time_budget_minutes": int64(15),
		"include_tests":       false,
	}
	for name, want := range checks {
		got, ok := result.Params.Get(name)
		if !ok || got != want {
			t.Fatalf("%s = %v (%T), want %v", name, got, got, want)
		}
	}
}

func TestOrchestrator_FormatOverride(t *testing.T) {
	orch := newOrchestrator(t)

	result, err := orch.Render(testsupport.Context(), orchestrator.Request{Template: "audit", Format: "json"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Output.Format != render.FormatJSON {
		t.Fatalf("format = %q", result.Output.Format)
	}
	if !strings.Contains(result.Output.Text, "Respond with JSON only") {
		t.Fatalf("json contract missing:\n%s", result.Output.Text)
	}
	if strings.Contains(result.Output.Text, "Markdown report") {
		t.Fatalf("markdown contract leaked:\n%s", result.Output.Text)
	}

	_, err = orch.Render(testsupport.Context(), orchestrator.Request{Template: "audit", Format: "yaml"})
	var validation *schema.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *schema.ValidationError, got %v", err)
	}
}

func TestOrchestrator_FormatWithoutParameter(t *testing.T) {
	result, err := newOrchestrator(t).Render(testsupport.Context(), orchestrator.Request{
		Template:  "security",
		Overrides: []string{"target=api"},
		Format:    render.FormatJSON,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Output.Format != render.FormatJSON {
		t.Fatalf("format = %q", result.Output.Format)
	}
	if _, ok := result.Params.Get(render.FormatParam); ok {
		t.Fatalf("output_format leaked into params")
	}
}

func TestOrchestrator_MissingRequired(t *testing.T) {
	orch := newOrchestrator(t)

	_, err := orch.Render(testsupport.Context(), orchestrator.Request{Template: "security"})
	var missing *resolve.MissingRequiredParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *resolve.MissingRequiredParameterError, got %v", err)
	}
}

type answers map[string]string

func (a answers) Prompt(_ context.Context, spec schema.ParameterSpec) (string, error) {
	answer, ok := a[spec.Name]
	if !ok {
		return "", errors.New("no answer")
	}
	return answer, nil
}

func TestOrchestrator_PrompterFillsRequired(t *testing.T) {
	orch := newOrchestrator(t)

	result, err := orch.Render(testsupport.Context(), orchestrator.Request{
		Template: "security",
		Prompter: answers{"target": "billing"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(result.Output.Text, "# Security Review: billing") {
		t.Fatalf("unexpected output:\n%s", result.Output.Text)
	}

	// a preset that sets the parameter means nothing is asked
	result, err = orch.Render(testsupport.Context(), orchestrator.Request{
		Template: "security",
		Preset:   "internal",
		Prompter: answers{},
	})
	if err != nil {
		t.Fatalf("render with preset: %v", err)
	}
	if !strings.Contains(result.Output.Text, "malicious insider") {
		t.Fatalf("preset not applied:\n%s", result.Output.Text)
	}
}

func TestOrchestrator_UnknownTemplateAndPreset(t *testing.T) {
	orch := newOrchestrator(t)

	_, err := orch.Render(testsupport.Context(), orchestrator.Request{Template: "nope"})
	var notFound *catalog.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *catalog.NotFoundError, got %v", err)
	}

	_, err = orch.Render(testsupport.Context(), orchestrator.Request{Template: "audit", Preset: "slow"})
	var presetErr *catalog.PresetNotFoundError
	if !errors.As(err, &presetErr) {
		t.Fatalf("expected *catalog.PresetNotFoundError, got %v", err)
	}
}

func TestOrchestrator_EmitPacket(t *testing.T) {
	root := t.TempDir()
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	orch := newOrchestrator(t, orchestrator.WithPacketBuilder(
		packet.NewBuilder(packet.WithRoot(root), packet.WithClock(testsupport.FixedClock(at))),
	))

	result, err := orch.Render(testsupport.Context(), orchestrator.Request{
		Template:  "security",
		Overrides: []string{"target=api"},
		Emit:      true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.PacketErr != nil {
		t.Fatalf("packet error: %v", result.PacketErr)
	}
	if result.Packet == nil {
		t.Fatalf("expected packet")
	}
	if want := filepath.Join(root, "20250304_050607_security"); result.Packet.Dir != want {
		t.Fatalf("dir = %q, want %q", result.Packet.Dir, want)
	}

	read, err := packet.Read(result.Packet.Dir)
	if err != nil {
		t.Fatalf("read packet: %v", err)
	}
	if read.Metadata.Version != "0.2.0" || read.Output.Text != result.Output.Text {
		t.Fatalf("packet mismatch: %+v", read.Metadata)
	}
	if err := packet.Verify(read); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestOrchestrator_PacketFailureKeepsOutput(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	orch := newOrchestrator(t)

	result, err := orch.Render(testsupport.Context(), orchestrator.Request{
		Template: "readme",
		Emit:     true,
		RunDir:   filepath.Join(blocker, "runs"),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.PacketErr == nil || result.Packet != nil {
		t.Fatalf("expected packet failure, got %+v", result)
	}
	if result.Output.Text == "" {
		t.Fatalf("output discarded")
	}
}

func TestOrchestrator_Engines(t *testing.T) {
	orch := newOrchestrator(t)

	if got := orch.Engines(); len(got) != 2 {
		t.Fatalf("engines = %v", got)
	}
	if _, err := orch.Pipeline("jinja9"); err == nil {
		t.Fatalf("expected unknown engine error")
	}
	first, err := orch.Pipeline("")
	if err != nil {
		t.Fatalf("default pipeline: %v", err)
	}
	second, _ := orch.Pipeline("builtin")
	if first != second {
		t.Fatalf("pipelines not cached per engine")
	}
}

func TestOrchestrator_ContextAndCatalogRequired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newOrchestrator(t).Render(ctx, orchestrator.Request{Template: "audit"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := orchestrator.New().Render(context.Background(), orchestrator.Request{Template: "audit"}); err == nil {
		t.Fatalf("expected missing catalog error")
	}
}
