// Package aitest provides a scripted ai.Generator and canned model payloads.
package aitest

import (
	"context"
	"sync"

	"atlas/internal/ai"
)

// Generator replays Responses in order, repeating the last one. When Err is
// set every call fails with it.
type Generator struct {
	mu        sync.Mutex
	Responses [][]byte
	Err       error
	requests  []ai.Request
}

// New returns a generator that answers with the given payloads.
func New(responses ...[]byte) *Generator {
	return &Generator{Responses: responses}
}

// Generate implements ai.Generator.
func (g *Generator) Generate(ctx context.Context, req ai.Request) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Err != nil {
		return nil, g.Err
	}
	if len(g.Responses) == 0 {
		return nil, ai.ErrEmptyResponse
	}
	out := g.Responses[0]
	if len(g.Responses) > 1 {
		g.Responses = g.Responses[1:]
	}
	return out, nil
}

// Requests returns the requests received so far.
func (g *Generator) Requests() []ai.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.Request(nil), g.requests...)
}

// AnalysisJSON is a schema-valid analysis response with two issues.
var AnalysisJSON = []byte(`{
  "summary": {
    "overallStatus": "needs_attention",
    "keyMessage": "Solid base stack with one timing conflict.",
    "supplementCount": 2,
    "issueCount": 2,
    "benefitCount": 3,
    "nextAction": "Separate zinc from iron by two hours",
    "scoreBreakdown": {"safety": 78, "effectiveness": 81, "personalization": 64}
  },
  "alerts": [
    {"priority": "warning", "title": "Mineral competition", "message": "Zinc and iron compete for absorption."}
  ],
  "supplements": [
    {
      "name": "Zinc",
      "assessment": "Appropriate dose",
      "current": {"dosage": "15mg", "frequency": "Daily"},
      "optimal": {"dosageRange": "8-25mg", "frequency": "Daily"},
      "effectiveness": {"rating": 7, "expectedBenefits": ["Immune support"]},
      "safety": {"rating": 8, "concerns": []}
    }
  ],
  "interactions": [
    {
      "supplements": ["Zinc", "Iron"],
      "type": "competitive",
      "severity": "moderate",
      "description": "Both use the same transporters.",
      "management": {"recommendation": "Take two hours apart"}
    }
  ],
  "opportunities": [
    {
      "priority": "medium",
      "title": "Add vitamin C with iron",
      "description": "Vitamin C improves non-heme iron uptake.",
      "expectedBenefit": "Better iron status",
      "implementation": {"steps": ["Take iron with orange juice"], "timeframe": "1 week", "cost": "low", "difficulty": "easy"},
      "evidence": "strong"
    }
  ],
  "insights": [
    {"title": "Energy goals", "description": "Iron status matters for fatigue.", "relevance": "high"}
  ],
  "disclaimer": "Not medical advice."
}`)

// ExtractionJSON is a schema-valid label extraction without a confidence score.
var ExtractionJSON = []byte(`{
  "product": {
    "name": "Daily Multi",
    "brand": "Acme",
    "category": "vitamins",
    "suggestedUse": "With breakfast"
  },
  "supplements": [
    {"name": "Vitamin D3", "dosage": "1000 IU"},
    {"name": "Zinc", "dosage": "15mg", "frequency": "Twice daily", "timing": "With meals"}
  ]
}`)
