// Package config loads the deployment configuration: where the log lives,
// how the gateway listens, and the genesis the ledgers are built from.
//
// Sources are layered in order: built-in defaults, a YAML or CUE file, then
// DAJEUM_* environment variables. The merged result is checked against the
// embedded CUE schema before use. CLI flags override afterwards.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix is the environment variable prefix, e.g. DAJEUM_DATABASE_PATH.
const EnvPrefix = "dajeum"

// Defaults.
const (
	DefaultDatabasePath    = "dajeum.db"
	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = "10s"
)

// Config is the complete deployment configuration.
type Config struct {
	DatabasePath    string `yaml:"database_path" json:"database_path" split_words:"true"`
	ListenAddr      string `yaml:"listen_addr" json:"listen_addr" split_words:"true"`
	LogLevel        string `yaml:"log_level" json:"log_level" split_words:"true"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout" split_words:"true"`

	// Genesis is recorded in the log on first start and never reloaded.
	Genesis ledger.Genesis `yaml:"genesis" json:"genesis" ignored:"true"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DatabasePath:    DefaultDatabasePath,
		ListenAddr:      DefaultListenAddr,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		Genesis:         ledger.DefaultGenesis(),
	}
}

// Error reports an invalid configuration.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads path (optional), overlays the environment and validates.
// Files ending in .cue are evaluated with CUE; anything else is YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Source: path, Err: err}
		}
		if filepath.Ext(path) == ".cue" {
			err = cfg.decodeCUE(path, buf)
		} else {
			err = cfg.decodeYAML(buf)
		}
		if err != nil {
			return nil, &Error{Source: path, Err: err}
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, &Error{Source: "environment", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML merges a YAML document over cfg. Unknown keys are rejected.
// A prices map in the file replaces the default prices instead of adding
// to them.
func (c *Config) decodeYAML(buf []byte) error {
	var probe struct {
		Genesis struct {
			Token struct {
				Prices yaml.Node `yaml:"prices"`
			} `yaml:"token"`
		} `yaml:"genesis"`
	}
	if err := yaml.Unmarshal(buf, &probe); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if probe.Genesis.Token.Prices.Kind != 0 {
		c.Genesis.Token.Prices = nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// decodeCUE evaluates a CUE file and merges its concrete result over cfg
// with the same rules as YAML.
func (c *Config) decodeCUE(path string, buf []byte) error {
	v := cuecontext.New().CompileBytes(buf, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile cue: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("evaluate cue: %w", err)
	}
	doc, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("export cue: %w", err)
	}
	return c.decodeYAML(doc)
}

// Validate checks the configuration against the embedded schema and the
// ledger's own genesis rules.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &Error{Source: "schema", Err: err}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	doc := ctx.Encode(c.document())
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &Error{Err: err}
	}
	if err := c.Genesis.Validate(); err != nil {
		return &Error{Err: err}
	}
	if _, err := c.ShutdownDuration(); err != nil {
		return &Error{Err: err}
	}
	return nil
}

// document renders the configuration with its json field names. Slices are
// never nil so CUE sees lists, not nulls.
func (c *Config) document() map[string]any {
	return map[string]any{
		"database_path":    c.DatabasePath,
		"listen_addr":      c.ListenAddr,
		"log_level":        c.LogLevel,
		"shutdown_timeout": c.ShutdownTimeout,
		"genesis":          ir.ToGo(c.Genesis.Object()),
	}
}

// ShutdownDuration parses ShutdownTimeout.
func (c *Config) ShutdownDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("shutdown_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("shutdown_timeout: must not be negative")
	}
	return d, nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
