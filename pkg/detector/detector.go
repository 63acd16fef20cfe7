// Package detector finds duplicated token runs ("clones") across source files.
//
// A run reads and tokenizes every file in parallel, concatenates the token
// streams into one corpus with a sentinel after each file, and hands the
// corpus to a Strategy. The default WindowStrategy indexes every window of
// MinTokens tokens by a rolling hash, extends colliding windows to maximal
// matches, and merges matches that share an occurrence into multi-location
// clones.
package detector

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/panbanda/cpd/internal/fileproc"
	"github.com/panbanda/cpd/pkg/config"
	"github.com/panbanda/cpd/pkg/corpus"
	"github.com/panbanda/cpd/pkg/source"
	"github.com/panbanda/cpd/pkg/token"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detector runs clone detection over a set of files.
type Detector struct {
	thresholds  Thresholds
	strategy    Strategy
	tokenizer   token.Tokenizer
	workers     int
	maxFileSize int64
	onProgress  fileproc.ProgressFunc
	logger      *slog.Logger
}

// Option is a functional option for configuring Detector.
type Option func(*Detector)

// WithThresholds sets both thresholds.
func WithThresholds(th Thresholds) Option {
	return func(d *Detector) {
		d.thresholds = th
	}
}

// WithMinLines sets the minimum clone size in lines.
func WithMinLines(n int) Option {
	return func(d *Detector) {
		d.thresholds.MinLines = n
	}
}

// WithMinTokens sets the minimum clone size in tokens.
func WithMinTokens(n int) Option {
	return func(d *Detector) {
		d.thresholds.MinTokens = n
	}
}

// WithStrategy replaces the matching strategy.
func WithStrategy(s Strategy) Option {
	return func(d *Detector) {
		d.strategy = s
	}
}

// WithTokenizer replaces the tokenizer.
func WithTokenizer(t token.Tokenizer) Option {
	return func(d *Detector) {
		d.tokenizer = t
	}
}

// WithWorkers sets the parallelism (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(d *Detector) {
		d.workers = n
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(d *Detector) {
		d.maxFileSize = maxSize
	}
}

// WithProgress sets a callback invoked after each file is tokenized.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(d *Detector) {
		d.onProgress = fn
	}
}

// WithLogger sets the logger for phase timings and skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithConfig applies the detection section of a configuration.
func WithConfig(cfg config.DetectionConfig) Option {
	return func(d *Detector) {
		d.thresholds = Thresholds{MinLines: cfg.MinLines, MinTokens: cfg.MinTokens}
		d.tokenizer = NewTokenizer(cfg)
		d.workers = cfg.Workers
		d.maxFileSize = cfg.MaxFileSize
	}
}

// NewTokenizer builds the tokenizer named by cfg.
func NewTokenizer(cfg config.DetectionConfig) token.Tokenizer {
	policy := token.Policy{
		NormalizeIdentifiers: cfg.NormalizeIdentifiers,
		NormalizeLiterals:    cfg.NormalizeLiterals,
	}
	if cfg.Tokenizer == config.TokenizerSyntax {
		return token.NewSyntax(policy)
	}
	return token.NewLexer(policy)
}

// New creates a detector with the default thresholds, the lexer tokenizer
// and the window strategy.
func New(opts ...Option) *Detector {
	d := &Detector{
		thresholds: DefaultThresholds(),
		tokenizer:  token.NewLexer(token.DefaultPolicy()),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.strategy == nil {
		d.strategy = NewWindowStrategy(fileproc.Workers(d.workers))
	}
	return d
}

// Thresholds returns the configured thresholds.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

type tokenizedFile struct {
	tokens []token.Token
	lines  int
}

// Detect reads files from src in the given order and reports their clones.
// Files that cannot be read or decoded are skipped and listed in
// Result.Skipped. A nil src reads from the local filesystem.
func (d *Detector) Detect(ctx context.Context, files []string, src source.ContentSource) (*Result, error) {
	start := time.Now()
	if err := d.thresholds.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoInput
	}
	if src == nil {
		src = source.NewFilesystem()
	}

	outcomes, err := fileproc.MapOrdered(ctx, files, d.workers, func(fileID int, path string) (tokenizedFile, error) {
		content, err := src.Read(path)
		if err != nil {
			return tokenizedFile{}, err
		}
		content, err = d.decode(content)
		if err != nil {
			return tokenizedFile{}, err
		}
		return tokenizedFile{
			tokens: d.tokenizer.Tokenize(fileID, path, content),
			lines:  token.CountLines(content),
		}, nil
	}, d.onProgress)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("tokenized files", "files", len(files), "elapsed", time.Since(start))

	res := &Result{
		Strategy:   d.strategy.Name(),
		Thresholds: d.thresholds,
	}

	size := 0
	for _, o := range outcomes {
		size += len(o.Value.tokens) + 1
	}
	b := corpus.NewBuilder(size)
	for fileID, o := range outcomes {
		if o.Err != nil {
			fe := &FileError{Path: o.Path, Err: o.Err}
			res.Skipped = append(res.Skipped, SkippedFile{Path: o.Path, Reason: o.Err.Error(), Err: fe})
			d.logger.Warn("skipping file", "path", o.Path, "error", o.Err)
			continue
		}
		b.Add(fileID, o.Path, o.Value.lines, o.Value.tokens)
	}
	c := b.Build()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	phase := time.Now()
	clones, err := d.strategy.Detect(ctx, c, d.thresholds)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("detected clones",
		"strategy", d.strategy.Name(),
		"tokens", c.Len(),
		"clones", clones.Len(),
		"elapsed", time.Since(phase))

	res.CloneMap = clones
	res.Duration = time.Since(start)
	return res, nil
}

// decode rejects content the tokenizer must not see and strips a UTF-8
// byte order mark.
func (d *Detector) decode(content []byte) ([]byte, error) {
	if d.maxFileSize > 0 && int64(len(content)) > d.maxFileSize {
		return nil, ErrTooLarge
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil, ErrBinary
	}
	if !utf8.Valid(content) {
		return nil, ErrEncoding
	}
	return bytes.TrimPrefix(content, utf8BOM), nil
}
