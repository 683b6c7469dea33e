package categorize

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Source says how a suggestion was made.
type Source string

const (
	SourceRule    Source = "rule"
	SourceLLM     Source = "llm"
	SourceDefault Source = "default"
)

// Confidence reported for each source.
const (
	RuleConfidence = 0.9
	LLMConfidence  = 0.7
)

// Chooser picks a category name from an allowed list.
type Chooser interface {
	Choose(ctx context.Context, vendor, description string, allowed []string) (string, error)
}

// Suggestion is a proposed category for an expense.
type Suggestion struct {
	CategoryID int     `json:"category_id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Service combines keyword rules, an optional LLM and a default category.
type Service struct {
	chart    Chart
	rules    *RuleCategorizer
	llm      Chooser
	fallback string
	logger   *zap.Logger
}

// NewService creates a Service. llm may be nil. fallback names the
// category used when nothing else matches; blank leaves it uncategorised.
func NewService(chart Chart, rules []Rule, llm Chooser, fallback string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chart:    chart,
		rules:    NewRuleCategorizer(rules),
		llm:      llm,
		fallback: fallback,
		logger:   logger,
	}
}

// Suggest proposes a category. LLM failures are logged and fall through
// to the default; they are never returned.
func (s *Service) Suggest(ctx context.Context, vendor, description string) Suggestion {
	if name, ok := s.rules.Match(vendor, description); ok {
		if c, ok := s.chart.ByName(name); ok {
			return Suggestion{CategoryID: c.ID, Category: c.Name, Confidence: RuleConfidence, Source: SourceRule}
		}
		s.logger.Warn("categorizer rule names unknown category", zap.String("category", name))
	}

	if s.llm != nil && (vendor != "" || description != "") {
		answer, err := s.llm.Choose(ctx, vendor, description, s.chart.Names())
		if err != nil {
			s.logger.Warn("llm categorization failed", zap.String("vendor", vendor), zap.Error(err))
		} else if c, ok := Canonicalize(answer, s.chart); ok {
			return Suggestion{CategoryID: c.ID, Category: c.Name, Confidence: LLMConfidence, Source: SourceLLM}
		} else {
			s.logger.Debug("llm answer matched no category", zap.String("answer", answer))
		}
	}

	if c, ok := s.chart.ByName(s.fallback); ok {
		return Suggestion{CategoryID: c.ID, Category: c.Name, Source: SourceDefault}
	}
	return Suggestion{Source: SourceDefault}
}

// CategoryFor returns just the suggested category ID.
func (s *Service) CategoryFor(ctx context.Context, vendor, description string) (int, error) {
	if s.chart == nil {
		return 0, fmt.Errorf("categorizer has no category chart")
	}
	return s.Suggest(ctx, vendor, description).CategoryID, nil
}
