package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if cfg.Detection.MinLines != 5 {
		t.Errorf("Detection.MinLines = %d, want 5", cfg.Detection.MinLines)
	}
	if cfg.Detection.MinTokens != 70 {
		t.Errorf("Detection.MinTokens = %d, want 70", cfg.Detection.MinTokens)
	}
	if cfg.Detection.Tokenizer != TokenizerLexer {
		t.Errorf("Detection.Tokenizer = %q, want %q", cfg.Detection.Tokenizer, TokenizerLexer)
	}
	if cfg.Detection.NormalizeIdentifiers || cfg.Detection.NormalizeLiterals {
		t.Error("normalization should be off by default")
	}

	if !cfg.Scan.Gitignore {
		t.Error("Scan.Gitignore should be true by default")
	}
	if len(cfg.Scan.Dirs) == 0 {
		t.Error("Scan.Dirs should have default values")
	}

	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cpd.toml")

	content := `
[detection]
min_lines = 8
min_tokens = 100
tokenizer = "syntax"
normalize_identifiers = true

[scan]
exclude = ["generated/**"]
gitignore = false

[output]
format = "json"
pmd = "cpd.xml"
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Detection.MinLines != 8 {
		t.Errorf("Detection.MinLines = %d, want 8", cfg.Detection.MinLines)
	}
	if cfg.Detection.MinTokens != 100 {
		t.Errorf("Detection.MinTokens = %d, want 100", cfg.Detection.MinTokens)
	}
	if cfg.Detection.Tokenizer != TokenizerSyntax {
		t.Errorf("Detection.Tokenizer = %q, want syntax", cfg.Detection.Tokenizer)
	}
	if !cfg.Detection.NormalizeIdentifiers {
		t.Error("Detection.NormalizeIdentifiers should be true")
	}
	if cfg.Scan.Gitignore {
		t.Error("Scan.Gitignore should be false")
	}
	if len(cfg.Scan.Dirs) == 0 {
		t.Error("Scan.Dirs should keep defaults when not set")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
	if cfg.Output.PMD != "cpd.xml" {
		t.Errorf("Output.PMD = %s, want cpd.xml", cfg.Output.PMD)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cpd.yaml")

	content := `
detection:
  min_lines: 3
scan:
  names: ["*.php"]
output:
  verbose: true
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Detection.MinLines != 3 {
		t.Errorf("Detection.MinLines = %d, want 3", cfg.Detection.MinLines)
	}
	if cfg.Detection.MinTokens != 70 {
		t.Errorf("Detection.MinTokens = %d, want default 70", cfg.Detection.MinTokens)
	}
	if len(cfg.Scan.Names) != 1 || cfg.Scan.Names[0] != "*.php" {
		t.Errorf("Scan.Names = %v, want [*.php]", cfg.Scan.Names)
	}
	if !cfg.Output.Verbose {
		t.Error("Output.Verbose should be true")
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cpd.json")

	content := `{"detection": {"workers": 4, "max_file_size": 1024}}`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Detection.Workers != 4 {
		t.Errorf("Detection.Workers = %d, want 4", cfg.Detection.Workers)
	}
	if cfg.Detection.MaxFileSize != 1024 {
		t.Errorf("Detection.MaxFileSize = %d, want 1024", cfg.Detection.MaxFileSize)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/cpd.toml"); err == nil {
		t.Error("Load() should fail for a missing file")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cpd.toml")
	if err := os.WriteFile(configPath, []byte("[detection\nmin_lines ="), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail for malformed TOML")
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cfg, path, err := LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Detection.MinTokens != 70 {
		t.Errorf("expected defaults, got MinTokens = %d", cfg.Detection.MinTokens)
	}

	if err := os.MkdirAll(".cpd", 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(".cpd", "cpd.toml"), []byte("[detection]\nmin_tokens = 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err = LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if path != filepath.Join(".cpd", "cpd.toml") {
		t.Errorf("path = %q", path)
	}
	if cfg.Detection.MinTokens != 50 {
		t.Errorf("Detection.MinTokens = %d, want 50", cfg.Detection.MinTokens)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min lines", func(c *Config) { c.Detection.MinLines = 0 }},
		{"negative min tokens", func(c *Config) { c.Detection.MinTokens = -1 }},
		{"unknown tokenizer", func(c *Config) { c.Detection.Tokenizer = "regex" }},
		{"negative workers", func(c *Config) { c.Detection.Workers = -2 }},
		{"negative max size", func(c *Config) { c.Detection.MaxFileSize = -1 }},
		{"unknown format", func(c *Config) { c.Output.Format = "html" }},
		{"quiet and verbose", func(c *Config) { c.Output.Quiet, c.Output.Verbose = true, true }},
		{"bad glob", func(c *Config) { c.Scan.Names = []string{"[*.go"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Exclude = []string{"generated/**", "*.min.js", "legacy"}

	tests := []struct {
		path     string
		excluded bool
	}{
		{"src/main.go", false},
		{"vendor/lib/lib.go", true},
		{"src/node_modules/pkg/index.js", true},
		{"generated/api/client.go", true},
		{"web/app.min.js", true},
		{"legacy/old.php", true},
		{"legacyish/new.php", false},
		{"src/app.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := cfg.ShouldExclude(tt.path); got != tt.excluded {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.excluded)
			}
		})
	}
}
