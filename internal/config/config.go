// Package config loads corrnet.yaml. Values come from Default, then the
// file, then CORRNET_* environment variables; command-line flags that were
// set explicitly override all of them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Benny93/corrnet-go/internal/graph"
	"github.com/Benny93/corrnet-go/internal/logging"
	"github.com/Benny93/corrnet-go/internal/query"
	"github.com/Benny93/corrnet-go/internal/rank"
)

// DefaultPath is read when no path is given. It may be absent.
const DefaultPath = "corrnet.yaml"

// maxSize bounds the config file read.
const maxSize = 1 << 20

// ErrTooLarge is returned for a config file over 1 MiB.
var ErrTooLarge = errors.New("config file exceeds 1 MiB")

// Config is the full corrnet configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Workers   int             `yaml:"workers"`
	Construct ConstructConfig `yaml:"construct"`
	Codon     CodonConfig     `yaml:"codon"`
	Merge     MergeConfig     `yaml:"merge"`
	Query     QueryConfig     `yaml:"query"`
	Store     StoreConfig     `yaml:"store"`
	Serve     ServeConfig     `yaml:"serve"`
}

// ConstructConfig tunes network construction.
type ConstructConfig struct {
	Method      string   `yaml:"method"`
	RankPolicy  string   `yaml:"rank_policy"`
	Log2        bool     `yaml:"log2"`
	Pseudocount float64  `yaml:"pseudocount"`
	DDOF        int      `yaml:"ddof"`
	RankCutoff  *float64 `yaml:"rank_cutoff"`
	PCCCutoff   *float64 `yaml:"pcc_cutoff"`
}

// CodonConfig tunes codon usage scoring.
type CodonConfig struct {
	// Percent of the shared gene count used as the cosmix prefix length.
	Percent float64 `yaml:"percent"`
}

// MergeConfig tunes network merging.
type MergeConfig struct {
	Priority string  `yaml:"priority"`
	MaxRank  float64 `yaml:"max_rank"`
}

// QueryConfig tunes neighborhood queries.
type QueryConfig struct {
	Depth  int    `yaml:"depth"`
	Mode   string `yaml:"mode"`
	AbsPCC bool   `yaml:"abs_pcc"`
}

// StoreConfig locates the badger index.
type StoreConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// ServeConfig tunes the MCP server.
type ServeConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics at /metrics.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: logging.DefaultLevel,
		Construct: ConstructConfig{
			Method:      string(graph.MethodHRR),
			RankPolicy:  string(rank.PolicyAbs),
			Pseudocount: 1.0,
			DDOF:        1,
		},
		Codon: CodonConfig{Percent: 0.1},
		Merge: MergeConfig{
			Priority: string(graph.MethodHRR),
			MaxRank:  2000,
		},
		Query: QueryConfig{
			Depth: 1,
			Mode:  string(query.ModeWalk),
		},
		Store: StoreConfig{
			Path:      ".corrnet",
			CacheSize: 1024,
		},
	}
}

// Load returns Default overlaid with the file at path and the environment.
// An empty path reads DefaultPath if it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer func() { _ = f.Close() }()
		if err := Decode(f, &cfg); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file, use defaults
	default:
		return cfg, fmt.Errorf("load config: %w", err)
	}

	if err := loadFromEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode overlays the YAML document read from r onto cfg. Unknown keys are
// rejected.
func Decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return err
	}
	if len(data) > maxSize {
		return ErrTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("CORRNET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORRNET_WORKERS"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CORRNET_WORKERS: %w", err)
		}
		cfg.Workers = i
	}
	if v := os.Getenv("CORRNET_STORE"); v != "" {
		cfg.Store.Path = v
	}
	return nil
}

// Validate checks every enumerated and bounded field.
func (c Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := graph.ParseMethod(c.Construct.Method); err != nil {
		errs = append(errs, fmt.Errorf("construct.method: %w", err))
	}
	if _, err := rank.ParsePolicy(c.Construct.RankPolicy); err != nil {
		errs = append(errs, fmt.Errorf("construct.rank_policy: %w", err))
	}
	if c.Construct.DDOF != 0 && c.Construct.DDOF != 1 {
		errs = append(errs, fmt.Errorf("construct.ddof must be 0 or 1, got %d", c.Construct.DDOF))
	}
	if c.Construct.Log2 && c.Construct.Pseudocount <= 0 {
		errs = append(errs, fmt.Errorf("construct.pseudocount must be positive with log2, got %g", c.Construct.Pseudocount))
	}
	if c.Codon.Percent <= 0 || c.Codon.Percent > 1 {
		errs = append(errs, fmt.Errorf("codon.percent must be in (0, 1], got %g", c.Codon.Percent))
	}
	if _, err := graph.ParseMethod(c.Merge.Priority); err != nil {
		errs = append(errs, fmt.Errorf("merge.priority: %w", err))
	}
	if c.Query.Depth < 0 {
		errs = append(errs, fmt.Errorf("query.depth must not be negative, got %d", c.Query.Depth))
	}
	if _, err := query.ParseMode(c.Query.Mode); err != nil {
		errs = append(errs, fmt.Errorf("query.mode: %w", err))
	}
	if c.Store.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("store.cache_size must not be negative, got %d", c.Store.CacheSize))
	}

	return errors.Join(errs...)
}
