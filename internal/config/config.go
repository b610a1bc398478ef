// Package config loads CLI settings from defaults, an optional YAML file,
// PROMPTKIT_* environment variables and flag overrides, in that order.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. PROMPTKIT_TEMPLATES_DIR.
	EnvPrefix = "PROMPTKIT_"
	// DefaultFile is read when present and no explicit file is given.
	DefaultFile = "promptkit.yaml"
)

// Config holds every setting the CLI reads.
type Config struct {
	TemplatesDir string       `koanf:"templates_dir"`
	RunDir       string       `koanf:"run_dir"`
	Engine       string       `koanf:"engine"        validate:"required,oneof=builtin pongo2"`
	Log          LogConfig    `koanf:"log"`
	Doctor       DoctorConfig `koanf:"doctor"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"required,oneof=debug info warn error disabled"`
	JSON  bool   `koanf:"json"`
}

type DoctorConfig struct {
	Concurrency    int  `koanf:"concurrency"     validate:"min=1"`
	MetaValidation bool `koanf:"meta_validation"`
}

// Default returns the built-in settings. An empty RunDir disables packets.
func Default() *Config {
	return &Config{
		TemplatesDir: "templates",
		Engine:       "builtin",
		Log: LogConfig{
			Level: "info",
		},
		Doctor: DoctorConfig{
			Concurrency:    4,
			MetaValidation: true,
		},
	}
}

// Options selects the sources Load reads beyond defaults and environment.
type Options struct {
	// File is an explicit config path; it must exist. Empty falls back to
	// DefaultFile when present.
	File string
	// Overrides are dotted keys (e.g. "log.level") set last, typically
	// from changed CLI flags.
	Overrides map[string]any
}

// Load merges all sources and validates the result.
func Load(ctx context.Context, opts Options) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	data, err := readFile(opts.File)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := k.Load(rawMap(data), nil); err != nil {
			return nil, fmt.Errorf("config: apply file: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config: override %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           cfg,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: configuration cannot be nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return filterNil(data), nil
}

// filterNil drops null entries so they do not erase defaults.
func filterNil(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if filtered := filterNil(nested); len(filtered) > 0 {
				out[k] = filtered
			}
			continue
		}
		out[k] = v
	}
	return out
}

var sections = []string{"log", "doctor"}

// transformEnv maps PROMPTKIT_LOG_LEVEL to log.level and
// PROMPTKIT_TEMPLATES_DIR to templates_dir.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest, value
		}
	}
	return key, value
}

type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, errors.New("ReadBytes not implemented")
}
