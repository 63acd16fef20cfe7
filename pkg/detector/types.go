package detector

import (
	"time"

	"github.com/panbanda/cpd/pkg/stats"
)

// Occurrence is one location of a clone.
type Occurrence struct {
	FileID     int    `json:"file_id"`
	File       string `json:"file"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Lines      int    `json:"lines"`
	StartToken int    `json:"-"`
}

// Clone is a maximal token run found at two or more locations. Occurrences
// are unique by (FileID, StartLine, EndLine) and sorted by file then line.
type Clone struct {
	ID          int          `json:"id"`
	Fingerprint string       `json:"fingerprint"`
	Lines       int          `json:"lines"`
	Tokens      int          `json:"tokens"`
	Occurrences []Occurrence `json:"occurrences"`
}

// Multiplicity returns the number of occurrences.
func (c *Clone) Multiplicity() int {
	return len(c.Occurrences)
}

// DuplicatedLines returns the block size times its multiplicity.
func (c *Clone) DuplicatedLines() int {
	return c.Lines * len(c.Occurrences)
}

// Hotspot is a file with a large share of duplicated lines.
type Hotspot struct {
	File            string `json:"file"`
	DuplicatedLines int    `json:"duplicated_lines"`
	Clones          int    `json:"clones"`
}

// CloneMap is the result of one detection run, ordered by first occurrence.
type CloneMap struct {
	Clones          []Clone       `json:"clones"`
	FilesScanned    int           `json:"files_scanned"`
	FilesWithClones int           `json:"files_with_clones"`
	TotalLines      int           `json:"total_lines"`
	DuplicatedLines int           `json:"duplicated_lines"`
	Percentage      float64       `json:"percentage"`
	Sizes           stats.Summary `json:"sizes"`
	Hotspots        []Hotspot     `json:"hotspots,omitempty"`
}

// Len returns the number of clones.
func (m *CloneMap) Len() int {
	return len(m.Clones)
}

// Empty reports whether no clones were found.
func (m *CloneMap) Empty() bool {
	return len(m.Clones) == 0
}

// SkippedFile is an input that could not be tokenized.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result bundles the clone map with run metadata.
type Result struct {
	*CloneMap
	Skipped    []SkippedFile `json:"skipped,omitempty"`
	Strategy   string        `json:"strategy"`
	Thresholds Thresholds    `json:"thresholds"`
	Duration   time.Duration `json:"duration_ns"`
}

// Thresholds are the minimum clone size. Both must be satisfied.
type Thresholds struct {
	MinLines  int `json:"min_lines"`
	MinTokens int `json:"min_tokens"`
}

// DefaultThresholds returns the conventional 5 lines / 70 tokens.
func DefaultThresholds() Thresholds {
	return Thresholds{MinLines: 5, MinTokens: 70}
}

// Validate rejects non-positive thresholds.
func (t Thresholds) Validate() error {
	if t.MinLines <= 0 {
		return &ThresholdError{Name: "min-lines", Value: t.MinLines}
	}
	if t.MinTokens <= 0 {
		return &ThresholdError{Name: "min-tokens", Value: t.MinTokens}
	}
	return nil
}
