package detector

import (
	"context"

	"github.com/panbanda/cpd/pkg/corpus"
)

// Strategy finds clones in a built corpus. Implementations must be
// deterministic for a given corpus and thresholds.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, c *corpus.Corpus, th Thresholds) (*CloneMap, error)
}

// WindowStrategy seeds candidates from a rolling-hash index of minTokens
// windows, extends them to maximal matches and merges the matches into
// clones.
type WindowStrategy struct {
	// Workers shards match extension; values below 1 mean one worker.
	Workers int
}

// NewWindowStrategy creates the default strategy.
func NewWindowStrategy(workers int) *WindowStrategy {
	return &WindowStrategy{Workers: workers}
}

// Name implements Strategy.
func (s *WindowStrategy) Name() string {
	return "window"
}

// Detect implements Strategy.
func (s *WindowStrategy) Detect(ctx context.Context, c *corpus.Corpus, th Thresholds) (*CloneMap, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	matches, err := FindMatches(ctx, c, th, s.Workers)
	if err != nil {
		return nil, err
	}
	return Aggregate(c, matches), nil
}
