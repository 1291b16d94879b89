package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"atlas/pkg/domain"
)

// Input validation errors. Their messages are shown to the user unchanged.
var (
	ErrEmptyStack           = errors.New("At least one supplement is required for analysis")
	ErrIncompleteSupplement = errors.New("All supplements must have a name and dosage")
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Option configures an Analyzer or Extractor.
type Option func(*options)

type options struct {
	model   string
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

func buildOptions(defaultModel string, opts []Option) options {
	o := options{
		model: defaultModel,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithClock overrides the time source used for report metadata.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func (o options) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return ctx, func() {}
}

// AnalysisRequest is the document sent to the model.
type AnalysisRequest struct {
	Supplements []AnalysisSupplement `json:"supplements"`
	Profile     AnalysisProfile      `json:"profile"`
}

// AnalysisSupplement is the model's view of one supplement.
type AnalysisSupplement struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Timing    string `json:"timing"`
}

// AnalysisProfile is the model's view of the user. Blank fields carry
// explicit placeholders.
type AnalysisProfile struct {
	Age                string `json:"age"`
	Gender             string `json:"gender"`
	Weight             string `json:"weight"`
	HealthGoals        string `json:"healthGoals"`
	MedicalConditions  string `json:"medicalConditions"`
	CurrentMedications string `json:"currentMedications"`
	Allergies          string `json:"allergies"`
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// BuildAnalysisRequest projects the stack and profile into the model request,
// filling blanks with placeholders.
func BuildAnalysisRequest(supplements []domain.Supplement, profile domain.UserProfile) AnalysisRequest {
	req := AnalysisRequest{
		Supplements: make([]AnalysisSupplement, 0, len(supplements)),
		Profile: AnalysisProfile{
			Age:                or(profile.Age, "Not specified"),
			Gender:             or(profile.Gender, "Not specified"),
			Weight:             or(profile.Weight, "Not specified"),
			HealthGoals:        or(profile.HealthGoals, "General health and wellness"),
			MedicalConditions:  or(profile.MedicalConditions, "None reported"),
			CurrentMedications: or(profile.CurrentMedications, "None reported"),
			Allergies:          or(profile.Allergies, "None reported"),
		},
	}
	for _, s := range supplements {
		req.Supplements = append(req.Supplements, AnalysisSupplement{
			Name:      s.Name,
			Dosage:    s.Dosage,
			Frequency: s.Frequency,
			Timing:    or(s.Timing, "Not specified"),
		})
	}
	return req
}

// Analyzer produces supplement reports.
type Analyzer struct {
	gen  Generator
	opts options
}

// NewAnalyzer returns an analyzer backed by gen. A nil gen makes every call
// fail with an API configuration error.
func NewAnalyzer(gen Generator, opts ...Option) *Analyzer {
	return &Analyzer{gen: gen, opts: buildOptions(DefaultTextModel, opts)}
}

// AnalyzeSupplements asks the model for a report on supplements given
// profile. Returned errors are *Error values whose message is safe to show.
func (a *Analyzer) AnalyzeSupplements(ctx context.Context, supplements []domain.Supplement, profile domain.UserProfile) (*domain.SupplementAnalysis, error) {
	report, err := a.analyze(ctx, supplements, profile)
	if err != nil {
		return nil, analysisError(err)
	}
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, supplements []domain.Supplement, profile domain.UserProfile) (*domain.SupplementAnalysis, error) {
	if len(supplements) == 0 {
		return nil, ErrEmptyStack
	}
	for _, s := range supplements {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Dosage) == "" {
			return nil, ErrIncompleteSupplement
		}
	}
	if a.gen == nil {
		return nil, ErrAPIKeyMissing
	}
	body, err := json.MarshalIndent(BuildAnalysisRequest(supplements, profile), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := a.opts.bound(ctx)
	defer cancel()
	raw, err := a.gen.Generate(ctx, Request{
		Model:  a.opts.model,
		System: analysisSystemPrompt,
		Prompt: string(body),
		Schema: AnalysisSchema(),
	})
	if err != nil {
		return nil, err
	}

	var report domain.SupplementAnalysis
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	normalizeReport(&report)
	report.Metadata = domain.AnalysisMetadata{
		AnalysisDate:    a.opts.now().UTC().Format(isoMillis),
		AnalysisVersion: domain.AnalysisVersion,
		RequestID:       a.opts.newID(),
	}
	return &report, nil
}

func normalizeReport(r *domain.SupplementAnalysis) {
	if r.Alerts == nil {
		r.Alerts = []domain.Alert{}
	}
	if r.Supplements == nil {
		r.Supplements = []domain.SupplementAssessment{}
	}
	if r.Interactions == nil {
		r.Interactions = []domain.Interaction{}
	}
	if r.Opportunities == nil {
		r.Opportunities = []domain.Opportunity{}
	}
	if r.Insights == nil {
		r.Insights = []domain.Insight{}
	}
}
