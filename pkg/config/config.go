// Package config loads cpd settings from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Tokenizer names accepted by Detection.Tokenizer.
const (
	TokenizerLexer  = "lexer"
	TokenizerSyntax = "syntax"
)

// Formats accepted by Output.Format.
var Formats = []string{"text", "json", "markdown", "toon", "yaml"}

// Config holds all cpd settings.
type Config struct {
	Detection DetectionConfig `koanf:"detection" toml:"detection"`
	Scan      ScanConfig      `koanf:"scan" toml:"scan"`
	Output    OutputConfig    `koanf:"output" toml:"output"`
}

// DetectionConfig controls the clone detection engine.
type DetectionConfig struct {
	// MinLines is the minimum number of lines a clone must span.
	MinLines int `koanf:"min_lines" toml:"min_lines"`
	// MinTokens is the minimum number of tokens a clone must contain.
	MinTokens int `koanf:"min_tokens" toml:"min_tokens"`
	// Tokenizer is "lexer" or "syntax" (tree-sitter).
	Tokenizer            string `koanf:"tokenizer" toml:"tokenizer"`
	NormalizeIdentifiers bool   `koanf:"normalize_identifiers" toml:"normalize_identifiers"`
	NormalizeLiterals    bool   `koanf:"normalize_literals" toml:"normalize_literals"`
	// Workers is the tokenization parallelism; 0 means 2x NumCPU.
	Workers int `koanf:"workers" toml:"workers"`
	// MaxFileSize skips larger files, in bytes; 0 means no limit.
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"`
}

// ScanConfig controls file discovery.
type ScanConfig struct {
	// Names are glob patterns a file name must match. Empty means every
	// file with a known source extension.
	Names []string `koanf:"names" toml:"names"`
	// Exclude holds glob patterns matched against paths relative to the
	// scan root.
	Exclude []string `koanf:"exclude" toml:"exclude"`
	// Dirs are directory names skipped wherever they appear.
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls reporting.
type OutputConfig struct {
	Format      string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color       bool   `koanf:"color" toml:"color"`
	Verbose     bool   `koanf:"verbose" toml:"verbose"`
	Quiet       bool   `koanf:"quiet" toml:"quiet"`
	Progress    bool   `koanf:"progress" toml:"progress"`
	PMD         string `koanf:"pmd" toml:"pmd"`
	MetricsFile string `koanf:"metrics_file" toml:"metrics_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			MinLines:  5,
			MinTokens: 70,
			Tokenizer: TokenizerLexer,
		},
		Scan: ScanConfig{
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				"dist",
				"build",
				"__pycache__",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load reads configuration from a file, layered over the defaults.
// The parser is chosen by extension; unknown extensions are read as TOML.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return cfg, nil
}

// configNames are searched in order within each search directory.
var configNames = []string{
	"cpd.toml",
	"cpd.yaml",
	"cpd.yml",
	"cpd.json",
	".cpd.toml",
	".cpd.yaml",
	".cpd.yml",
	".cpd.json",
}

// Find returns the first config file found in the current directory or
// .cpd/, or "" when there is none.
func Find() string {
	for _, dir := range []string{".", ".cpd"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the discovered config file, or returns the defaults
// when none exists. A config file that exists but cannot be parsed is an
// error.
func LoadOrDefault() (*Config, string, error) {
	path := Find()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	d := c.Detection
	switch {
	case d.MinLines <= 0:
		return fmt.Errorf("%w: detection.min_lines must be positive, got %d", ErrInvalid, d.MinLines)
	case d.MinTokens <= 0:
		return fmt.Errorf("%w: detection.min_tokens must be positive, got %d", ErrInvalid, d.MinTokens)
	case d.Tokenizer != TokenizerLexer && d.Tokenizer != TokenizerSyntax:
		return fmt.Errorf("%w: detection.tokenizer must be %q or %q, got %q", ErrInvalid, TokenizerLexer, TokenizerSyntax, d.Tokenizer)
	case d.Workers < 0:
		return fmt.Errorf("%w: detection.workers must not be negative", ErrInvalid)
	case d.MaxFileSize < 0:
		return fmt.Errorf("%w: detection.max_file_size must not be negative", ErrInvalid)
	}

	if !slices.Contains(Formats, c.Output.Format) {
		return fmt.Errorf("%w: output.format must be one of %s, got %q", ErrInvalid, strings.Join(Formats, ", "), c.Output.Format)
	}
	if c.Output.Quiet && c.Output.Verbose {
		return fmt.Errorf("%w: output.quiet and output.verbose are mutually exclusive", ErrInvalid)
	}

	for _, pattern := range slices.Concat(c.Scan.Names, c.Scan.Exclude) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: bad glob pattern %q", ErrInvalid, pattern)
		}
	}
	return nil
}

// ShouldExclude reports whether a path relative to the scan root is excluded
// by directory name or exclude pattern.
func (c *Config) ShouldExclude(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if slices.Contains(c.Scan.Dirs, part) {
			return true
		}
	}

	base := filepath.Base(rel)
	for _, pattern := range c.Scan.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		// a bare directory pattern excludes everything below it
		if strings.HasPrefix(rel, strings.TrimSuffix(pattern, "/")+"/") {
			return true
		}
	}
	return false
}
