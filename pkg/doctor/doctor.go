// Package doctor checks catalog templates for problems and reports them as
// data. Every check runs for every template, so one pass enumerates all
// problems instead of stopping at the first.
package doctor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/resolve"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

// Doctor runs template checks against a catalog.
type Doctor struct {
	pipeline       *render.Pipeline
	concurrency    int
	metaValidation bool
	logger         logger.Logger
}

type Option func(*Doctor)

// WithPipeline sets the pipeline used for render and golden checks.
func WithPipeline(p *render.Pipeline) Option {
	return func(d *Doctor) {
		if p != nil {
			d.pipeline = p
		}
	}
}

// WithConcurrency bounds how many templates are checked at once.
func WithConcurrency(n int) Option {
	return func(d *Doctor) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithMetaValidation toggles compiling schema.json as a Draft 7 document.
func WithMetaValidation(enabled bool) Option {
	return func(d *Doctor) {
		d.metaValidation = enabled
	}
}

func WithLogger(l logger.Logger) Option {
	return func(d *Doctor) {
		if l != nil {
			d.logger = l
		}
	}
}

func New(options ...Option) *Doctor {
	d := &Doctor{
		pipeline:       render.New(),
		concurrency:    4,
		metaValidation: true,
		logger:         logger.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Check runs every check for the named templates, or for the whole catalog
// when no names are given. Only an unknown name or a cancelled context
// returns an error; template problems are findings.
func (d *Doctor) Check(ctx context.Context, cat *catalog.Catalog, names ...string) (Report, error) {
	if len(names) == 0 {
		names = cat.Names()
	} else {
		names = append([]string(nil), names...)
		sort.Strings(names)
	}

	templates := make([]*catalog.Template, 0, len(names))
	for _, name := range names {
		tpl, err := cat.Get(name)
		if err != nil {
			return Report{}, err
		}
		templates = append(templates, tpl)
	}

	results := make([][]Finding, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, tpl := range templates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.checkTemplate(tpl)
			d.logger.Debug("checked template", "template", tpl.Name, "findings", len(results[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Findings: []Finding{}, Checked: names}
	for _, findings := range results {
		report.Findings = append(report.Findings, findings...)
	}
	return report, nil
}

type checker struct {
	tpl      *catalog.Template
	findings []Finding
}

func (c *checker) add(kind Kind, check, detail string) {
	c.findings = append(c.findings, Finding{Template: c.tpl.Name, Kind: kind, Check: check, Detail: detail})
}

func (d *Doctor) checkTemplate(tpl *catalog.Template) []Finding {
	c := &checker{tpl: tpl}

	if tpl.SchemaErr != nil {
		c.add(KindSchemaError, CheckSchema, tpl.SchemaErr.Error())
	}
	if d.metaValidation && tpl.SchemaRaw != nil {
		if issues := metaValidate(tpl.SchemaRaw); len(issues) > 0 {
			c.add(KindSchemaError, CheckMetaSchema, formatIssues(issues))
		}
	}
	if tpl.Schema == nil {
		return c.findings
	}

	d.checkCoverage(c)

	resolved := d.checkPresets(c)
	for _, r := range resolved {
		check := CheckRender + ":" + r.label
		if _, err := d.pipeline.Render(tpl.Name, tpl.Body, r.params, ""); err != nil {
			c.add(KindValidationError, check, err.Error())
		}
	}

	d.checkGolden(c)
	return c.findings
}

func (d *Doctor) checkCoverage(c *checker) {
	vars, err := d.pipeline.Variables(c.tpl.Body)
	if err != nil {
		c.add(KindSchemaError, CheckVariableCoverage, fmt.Sprintf("template does not parse: %v", err))
		return
	}
	var undeclared []string
	for _, name := range vars {
		if !c.tpl.Schema.Has(name) {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		c.add(KindSchemaError, CheckVariableCoverage, "undeclared variables in template: "+strings.Join(undeclared, ", "))
	}
	if unused := unusedParameters(c.tpl.Schema, vars); len(unused) > 0 {
		d.logger.Info("schema declares parameters the template never reads", "template", c.tpl.Name, "unused", unused)
	}
}

// unusedParameters lists schema parameters absent from vars, in schema order.
// Unused parameters are informational: a preset may set them for a later
// revision of the body.
func unusedParameters(s *schema.Schema, vars []string) []string {
	read := make(map[string]struct{}, len(vars))
	for _, name := range vars {
		read[name] = struct{}{}
	}
	var unused []string
	for _, spec := range s.Parameters() {
		if _, ok := read[spec.Name]; !ok {
			unused = append(unused, spec.Name)
		}
	}
	return unused
}

type resolvedPreset struct {
	label  string
	params resolve.Params
}

// checkPresets resolves every preset over the schema defaults, or the
// defaults alone when the template has no presets.
func (d *Doctor) checkPresets(c *checker) []resolvedPreset {
	names := c.tpl.PresetNames()
	if len(names) == 0 {
		params, err := resolve.Resolve(c.tpl.Schema, resolve.DefaultsLayer(c.tpl.Schema))
		if err != nil {
			c.add(KindValidationError, CheckPreset+":defaults", err.Error())
			return nil
		}
		return []resolvedPreset{{label: "defaults", params: params}}
	}

	out := make([]resolvedPreset, 0, len(names))
	for _, name := range names {
		params, err := d.resolvePreset(c.tpl, name)
		if err != nil {
			c.add(KindValidationError, CheckPreset+":"+name, fmt.Sprintf("preset %q: %v", name, err))
			continue
		}
		out = append(out, resolvedPreset{label: name, params: params})
	}
	return out
}

func (d *Doctor) resolvePreset(tpl *catalog.Template, name string) (resolve.Params, error) {
	values, err := tpl.Preset(name)
	if err != nil {
		return resolve.Params{}, err
	}
	layer, err := resolve.NewLayer(resolve.LayerPreset, values)
	if err != nil {
		return resolve.Params{}, err
	}
	return resolve.Resolve(tpl.Schema, resolve.DefaultsLayer(tpl.Schema), layer)
}

func (d *Doctor) checkGolden(c *checker) {
	if c.tpl.Golden == nil {
		return
	}

	var (
		params resolve.Params
		err    error
	)
	if c.tpl.HasPreset(catalog.DefaultPreset) {
		params, err = d.resolvePreset(c.tpl, catalog.DefaultPreset)
	} else {
		params, err = resolve.Resolve(c.tpl.Schema, resolve.DefaultsLayer(c.tpl.Schema))
	}
	if err != nil {
		c.add(KindDriftDetected, CheckGolden, fmt.Sprintf("cannot resolve golden parameters: %v", err))
		return
	}

	out, err := d.pipeline.Render(c.tpl.Name, c.tpl.Body, params, "")
	if err != nil {
		c.add(KindDriftDetected, CheckGolden, fmt.Sprintf("cannot render golden parameters: %v", err))
		return
	}

	if detail, diff := compareGolden(*c.tpl.Golden, out.Text); detail != "" {
		c.findings = append(c.findings, Finding{
			Template: c.tpl.Name,
			Kind:     KindDriftDetected,
			Check:    CheckGolden,
			Detail:   detail,
			Diff:     diff,
		})
	}
}
