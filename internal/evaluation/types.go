package evaluation

import (
	"errors"
	"fmt"
)

// ErrTranscriptTooShort indicates a transcript below the configured minimum length.
var ErrTranscriptTooShort = errors.New("transcript is too short")

// Category is the score and feedback for one evaluation axis.
type Category struct {
	Score    float64 `json:"score" jsonschema:"minimum=0,maximum=10"`
	Feedback string  `json:"feedback"`
}

// Categories is the fixed set of evaluation axes.
type Categories struct {
	TechnicalSkills Category `json:"technicalSkills"`
	Communication   Category `json:"communication"`
	CulturalFit     Category `json:"culturalFit"`
	Experience      Category `json:"experience"`
}

// Result is a structured interview evaluation.
type Result struct {
	OverallScore        float64    `json:"overallScore" jsonschema:"minimum=0,maximum=10"`
	Categories          Categories `json:"categories"`
	Strengths           []string   `json:"strengths"`
	AreasForImprovement []string   `json:"areasForImprovement"`
	Recommendation      string     `json:"recommendation"`
}

// NamedCategory is a Category with its display label.
type NamedCategory struct {
	Key   string
	Label string
	Category
}

// Ordered returns the categories in display order.
func (c Categories) Ordered() []NamedCategory {
	return []NamedCategory{
		{Key: "technicalSkills", Label: "技術スキル", Category: c.TechnicalSkills},
		{Key: "communication", Label: "コミュニケーション能力", Category: c.Communication},
		{Key: "culturalFit", Label: "文化的適合性", Category: c.CulturalFit},
		{Key: "experience", Label: "経験の関連性", Category: c.Experience},
	}
}

// Band buckets a 0-10 score for display.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ScoreBand returns high for scores of 8 and above, medium from 6, else low.
func ScoreBand(score float64) Band {
	switch {
	case score >= 8:
		return BandHigh
	case score >= 6:
		return BandMedium
	default:
		return BandLow
	}
}

// ParseError reports accumulated output that could not be parsed as a
// Result. Raw holds the full text for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse evaluation result: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
