package job

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/danshapiro/ccstrip/internal/textenc"
)

type Config struct {
	Version int `json:"version" yaml:"version"`

	Inputs struct {
		Root     string   `json:"root" yaml:"root"`
		Include  []string `json:"include" yaml:"include"`
		Exclude  []string `json:"exclude" yaml:"exclude"`
		Encoding string   `json:"encoding" yaml:"encoding"`
	} `json:"inputs" yaml:"inputs"`

	Output struct {
		Dir       string `json:"dir" yaml:"dir"`
		Suffix    string `json:"suffix" yaml:"suffix"`
		Overwrite bool   `json:"overwrite" yaml:"overwrite"`
	} `json:"output" yaml:"output"`

	Report struct {
		Path               string `json:"path" yaml:"path"`
		FailOnUnterminated bool   `json:"fail_on_unterminated" yaml:"fail_on_unterminated"`
	} `json:"report" yaml:"report"`
}

//go:embed config_schema.json
var configSchemaJSON []byte

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Schema
	configSchemaErr  error
)

func compiledConfigSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource("config.json", bytes.NewReader(configSchemaJSON)); err != nil {
			configSchemaErr = err
			return
		}
		configSchema, configSchemaErr = c.Compile("config.json")
	})
	return configSchema, configSchemaErr
}

// LoadConfigFile reads a YAML (default) or JSON (.json) run config. Relative
// paths inside the file resolve against the file's directory.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	isJSON := strings.ToLower(filepath.Ext(path)) == ".json"
	cfg, err := ParseConfig(b, isJSON)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(abs))
	return cfg, nil
}

// ParseConfig decodes, schema-checks, defaults and validates a config
// document. Paths are left as written.
func ParseConfig(b []byte, isJSON bool) (*Config, error) {
	var doc any
	if isJSON {
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		// The schema validator expects encoding/json shaped values.
		normalized, err := jsonShaped(doc)
		if err != nil {
			return nil, err
		}
		doc = normalized
	}
	schema, err := compiledConfigSchema()
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var cfg Config
	if isJSON {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func jsonShaped(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyConfigDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Inputs.Root) == "" {
		cfg.Inputs.Root = "."
	}
	cfg.Inputs.Encoding = textenc.Normalize(cfg.Inputs.Encoding)
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if len(cfg.Inputs.Include) == 0 {
		return fmt.Errorf("inputs.include requires at least one pattern")
	}
	for _, p := range cfg.Inputs.Include {
		if err := validatePattern("inputs.include", p); err != nil {
			return err
		}
	}
	for _, p := range cfg.Inputs.Exclude {
		if err := validatePattern("inputs.exclude", p); err != nil {
			return err
		}
	}
	if _, err := textenc.Lookup(cfg.Inputs.Encoding); err != nil {
		return fmt.Errorf("inputs.encoding: %w", err)
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	if strings.ContainsAny(cfg.Output.Suffix, `/\`) {
		return fmt.Errorf("output.suffix must not contain path separators: %q", cfg.Output.Suffix)
	}
	return nil
}

func validatePattern(field, p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%s: empty pattern", field)
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%s: pattern %q must be relative to inputs.root", field, p)
	}
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("%s: invalid glob %q", field, p)
	}
	return nil
}

func (cfg *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	cfg.Inputs.Root = abs(cfg.Inputs.Root)
	cfg.Output.Dir = abs(cfg.Output.Dir)
	cfg.Report.Path = abs(cfg.Report.Path)
}
