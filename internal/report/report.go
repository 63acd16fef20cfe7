// Package report renders detection results for people and tools.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/panbanda/cpd/internal/output"
	"github.com/panbanda/cpd/pkg/detector"
	"github.com/panbanda/cpd/pkg/source"
)

// Options control what a report includes.
type Options struct {
	// Verbose adds the duplicated source of every clone.
	Verbose bool
	// Quiet reduces the text rendering to the final summary.
	Quiet bool
	// Source reads code fragments; nil reads the local filesystem.
	Source source.ContentSource
}

// Document is the serializable form of a run.
type Document struct {
	Summary  Summary        `json:"summary" yaml:"summary" toon:"summary"`
	Clones   []CloneEntry   `json:"clones" yaml:"clones" toon:"clones"`
	Hotspots []HotspotEntry `json:"hotspots,omitempty" yaml:"hotspots,omitempty" toon:"hotspots,omitempty"`
	Skipped  []SkippedEntry `json:"skipped,omitempty" yaml:"skipped,omitempty" toon:"skipped,omitempty"`
}

// Summary holds run-level figures.
type Summary struct {
	Strategy        string  `json:"strategy" yaml:"strategy" toon:"strategy"`
	MinLines        int     `json:"min_lines" yaml:"min_lines" toon:"min_lines"`
	MinTokens       int     `json:"min_tokens" yaml:"min_tokens" toon:"min_tokens"`
	Clones          int     `json:"clones" yaml:"clones" toon:"clones"`
	FilesScanned    int     `json:"files_scanned" yaml:"files_scanned" toon:"files_scanned"`
	FilesWithClones int     `json:"files_with_clones" yaml:"files_with_clones" toon:"files_with_clones"`
	TotalLines      int     `json:"total_lines" yaml:"total_lines" toon:"total_lines"`
	DuplicatedLines int     `json:"duplicated_lines" yaml:"duplicated_lines" toon:"duplicated_lines"`
	Percentage      float64 `json:"percentage" yaml:"percentage" toon:"percentage"`
	MeanCloneLines  float64 `json:"mean_clone_lines" yaml:"mean_clone_lines" toon:"mean_clone_lines"`
	P95CloneLines   float64 `json:"p95_clone_lines" yaml:"p95_clone_lines" toon:"p95_clone_lines"`
	MaxCloneLines   float64 `json:"max_clone_lines" yaml:"max_clone_lines" toon:"max_clone_lines"`
	DurationMS      int64   `json:"duration_ms" yaml:"duration_ms" toon:"duration_ms"`
}

// CloneEntry is one clone and its locations.
type CloneEntry struct {
	ID          int        `json:"id" yaml:"id" toon:"id"`
	Fingerprint string     `json:"fingerprint" yaml:"fingerprint" toon:"fingerprint"`
	Lines       int        `json:"lines" yaml:"lines" toon:"lines"`
	Tokens      int        `json:"tokens" yaml:"tokens" toon:"tokens"`
	Locations   []Location `json:"locations" yaml:"locations" toon:"locations"`
	Fragment    string     `json:"fragment,omitempty" yaml:"fragment,omitempty" toon:"fragment,omitempty"`
}

// Location is a line range in one file.
type Location struct {
	File      string `json:"file" yaml:"file" toon:"file"`
	StartLine int    `json:"start_line" yaml:"start_line" toon:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line" toon:"end_line"`
}

// HotspotEntry is a file with many duplicated lines.
type HotspotEntry struct {
	File            string `json:"file" yaml:"file" toon:"file"`
	DuplicatedLines int    `json:"duplicated_lines" yaml:"duplicated_lines" toon:"duplicated_lines"`
	Clones          int    `json:"clones" yaml:"clones" toon:"clones"`
}

// SkippedEntry is an input that was not analyzed.
type SkippedEntry struct {
	Path   string `json:"path" yaml:"path" toon:"path"`
	Reason string `json:"reason" yaml:"reason" toon:"reason"`
}

// Report is a renderable detection result.
type Report struct {
	doc  Document
	opts Options
}

var _ output.Renderable = (*Report)(nil)

// New builds a report. In verbose mode the first occurrence of every clone
// is read back from opts.Source.
func New(res *detector.Result, opts Options) (*Report, error) {
	if opts.Source == nil {
		opts.Source = source.NewFilesystem()
	}
	doc := Document{
		Summary: Summary{
			Strategy:        res.Strategy,
			MinLines:        res.Thresholds.MinLines,
			MinTokens:       res.Thresholds.MinTokens,
			Clones:          res.Len(),
			FilesScanned:    res.FilesScanned,
			FilesWithClones: res.FilesWithClones,
			TotalLines:      res.TotalLines,
			DuplicatedLines: res.DuplicatedLines,
			Percentage:      res.Percentage,
			MeanCloneLines:  res.Sizes.Mean,
			P95CloneLines:   res.Sizes.P95,
			MaxCloneLines:   res.Sizes.Max,
			DurationMS:      res.Duration.Milliseconds(),
		},
		Clones: make([]CloneEntry, 0, res.Len()),
	}

	for _, cl := range res.Clones {
		entry := CloneEntry{
			ID:          cl.ID,
			Fingerprint: cl.Fingerprint,
			Lines:       cl.Lines,
			Tokens:      cl.Tokens,
		}
		for _, o := range cl.Occurrences {
			entry.Locations = append(entry.Locations, Location{File: o.File, StartLine: o.StartLine, EndLine: o.EndLine})
		}
		if opts.Verbose {
			frag, err := Fragment(opts.Source, cl.Occurrences[0])
			if err != nil {
				return nil, err
			}
			entry.Fragment = frag
		}
		doc.Clones = append(doc.Clones, entry)
	}
	for _, h := range res.Hotspots {
		doc.Hotspots = append(doc.Hotspots, HotspotEntry(h))
	}
	for _, s := range res.Skipped {
		doc.Skipped = append(doc.Skipped, SkippedEntry{Path: s.Path, Reason: s.Reason})
	}

	return &Report{doc: doc, opts: opts}, nil
}

// Document returns the serializable form.
func (r *Report) Document() Document {
	return r.doc
}

// RenderData implements output.Renderable.
func (r *Report) RenderData() any {
	return r.doc
}

// RenderMarkdown implements output.Renderable.
func (r *Report) RenderMarkdown(w io.Writer) error {
	s := r.doc.Summary
	fmt.Fprintf(w, "# Duplicate code report\n\n")

	summary := output.NewTable("Summary", []string{"Metric", "Value"}, [][]string{
		{"Files scanned", fmt.Sprint(s.FilesScanned)},
		{"Files with clones", fmt.Sprint(s.FilesWithClones)},
		{"Clones", fmt.Sprint(s.Clones)},
		{"Duplicated lines", fmt.Sprintf("%d of %d (%.2f%%)", s.DuplicatedLines, s.TotalLines, s.Percentage)},
		{"Thresholds", fmt.Sprintf("%d lines, %d tokens", s.MinLines, s.MinTokens)},
	}, nil, nil)
	if err := summary.RenderMarkdown(w); err != nil {
		return err
	}

	if len(r.doc.Clones) > 0 {
		fmt.Fprintf(w, "## Clones\n\n")
		for _, c := range r.doc.Clones {
			fmt.Fprintf(w, "### Clone %d (%d lines, %d tokens)\n\n", c.ID, c.Lines, c.Tokens)
			for _, l := range c.Locations {
				fmt.Fprintf(w, "- `%s:%d-%d`\n", l.File, l.StartLine, l.EndLine)
			}
			fmt.Fprintln(w)
			if c.Fragment != "" {
				fmt.Fprintf(w, "```\n%s```\n\n", c.Fragment)
			}
		}
	}

	if len(r.doc.Hotspots) > 0 {
		if err := r.hotspotTable().RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) hotspotTable() *output.Table {
	rows := make([][]string, 0, len(r.doc.Hotspots))
	for _, h := range r.doc.Hotspots {
		rows = append(rows, []string{h.File, fmt.Sprint(h.DuplicatedLines), fmt.Sprint(h.Clones)})
	}
	return output.NewTable("Hotspots", []string{"File", "Duplicated lines", "Clones"}, rows, nil, r.doc.Hotspots)
}

// Fragment returns the source lines covered by an occurrence, each ending
// in a newline.
func Fragment(src source.ContentSource, o detector.Occurrence) (string, error) {
	content, err := src.Read(o.File)
	if err != nil {
		return "", fmt.Errorf("reading fragment of %s: %w", o.File, err)
	}
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	lines := splitLines(string(content))
	if o.StartLine < 1 || o.EndLine > len(lines) || o.StartLine > o.EndLine {
		return "", fmt.Errorf("reading fragment of %s: lines %d-%d out of range", o.File, o.StartLine, o.EndLine)
	}

	var b strings.Builder
	for _, line := range lines[o.StartLine-1 : o.EndLine] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// splitLines splits on \n, \r\n and lone \r, matching how tokens count
// lines.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
