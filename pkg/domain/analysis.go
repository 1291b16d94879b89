package domain

import (
	"fmt"
	"strings"
)

// OverallStatus grades the stack as a whole.
type OverallStatus string

// Overall statuses.
const (
	StatusOptimal        OverallStatus = "optimal"
	StatusGood           OverallStatus = "good"
	StatusNeedsAttention OverallStatus = "needs_attention"
	StatusCritical       OverallStatus = "critical"
)

// AnalysisVersion is stamped into every report produced by this module.
const AnalysisVersion = "1.0.0"

// SupplementAnalysis is the structured report returned by the analysis model.
type SupplementAnalysis struct {
	Summary          AnalysisSummary        `json:"summary"`
	Alerts           []Alert                `json:"alerts"`
	Supplements      []SupplementAssessment `json:"supplements"`
	Interactions     []Interaction          `json:"interactions"`
	Opportunities    []Opportunity          `json:"opportunities"`
	Insights         []Insight              `json:"insights"`
	ProgressTracking *ProgressTracking      `json:"progressTracking,omitempty"`
	Education        []EducationTopic       `json:"education,omitempty"`
	Disclaimer       string                 `json:"disclaimer"`
	Metadata         AnalysisMetadata       `json:"metadata"`
}

// AnalysisSummary is the headline of a report.
type AnalysisSummary struct {
	OverallStatus   OverallStatus   `json:"overallStatus"`
	KeyMessage      string          `json:"keyMessage"`
	SupplementCount int             `json:"supplementCount"`
	IssueCount      int             `json:"issueCount"`
	BenefitCount    int             `json:"benefitCount"`
	NextAction      string          `json:"nextAction,omitempty"`
	ScoreBreakdown  *ScoreBreakdown `json:"scoreBreakdown,omitempty"`
}

// ScoreBreakdown holds 0-100 sub-scores.
type ScoreBreakdown struct {
	Safety          float64 `json:"safety"`
	Effectiveness   float64 `json:"effectiveness"`
	Personalization float64 `json:"personalization"`
}

// Alert is a prioritized callout.
type Alert struct {
	Priority string `json:"priority"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// SupplementAssessment grades one supplement of the stack.
type SupplementAssessment struct {
	Name          string        `json:"name"`
	Assessment    string        `json:"assessment"`
	Current       CurrentDose   `json:"current"`
	Optimal       OptimalDose   `json:"optimal"`
	Effectiveness Effectiveness `json:"effectiveness"`
	Safety        Safety        `json:"safety"`
}

// CurrentDose is the dose the user takes today.
type CurrentDose struct {
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// OptimalDose is the recommended dose.
type OptimalDose struct {
	DosageRange string `json:"dosageRange"`
	Frequency   string `json:"frequency"`
}

// Effectiveness is rated 1-10.
type Effectiveness struct {
	Rating           float64  `json:"rating"`
	ExpectedBenefits []string `json:"expectedBenefits"`
}

// Safety is rated 1-10.
type Safety struct {
	Rating   float64  `json:"rating"`
	Concerns []string `json:"concerns"`
}

// Interaction describes how two or more supplements affect each other.
type Interaction struct {
	Supplements []string   `json:"supplements"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Description string     `json:"description"`
	Management  Management `json:"management"`
}

// Management holds the handling advice for an interaction.
type Management struct {
	Recommendation string `json:"recommendation"`
}

// Opportunity is a suggested improvement to the stack.
type Opportunity struct {
	Priority        string         `json:"priority"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	ExpectedBenefit string         `json:"expectedBenefit"`
	Implementation  Implementation `json:"implementation"`
	Evidence        string         `json:"evidence"`
}

// Implementation describes how to act on an opportunity.
type Implementation struct {
	Steps      []string `json:"steps"`
	Timeframe  string   `json:"timeframe"`
	Cost       string   `json:"cost"`
	Difficulty string   `json:"difficulty"`
}

// Insight is a personalized observation.
type Insight struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Relevance       string   `json:"relevance"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ProgressTracking lists what to measure and when.
type ProgressTracking struct {
	Biomarkers  []Biomarker  `json:"biomarkers"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// Biomarker is a lab value worth tracking.
type Biomarker struct {
	Name     string `json:"name"`
	Target   string `json:"target,omitempty"`
	Timeline string `json:"timeline"`
}

// Checkpoint is a point in time with expected outcomes.
type Checkpoint struct {
	Timeframe    string   `json:"timeframe"`
	Expectations []string `json:"expectations"`
}

// EducationTopic is a short explainer attached to a report.
type EducationTopic struct {
	Topic      string `json:"topic"`
	Content    string `json:"content"`
	Importance string `json:"importance"`
}

// AnalysisMetadata identifies when and how a report was produced.
type AnalysisMetadata struct {
	AnalysisDate    string `json:"analysisDate"`
	AnalysisVersion string `json:"analysisVersion,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
}

// Enumerations accepted by the analysis schema.
var (
	OverallStatuses       = []string{string(StatusOptimal), string(StatusGood), string(StatusNeedsAttention), string(StatusCritical)}
	AlertPriorities       = []string{"critical", "warning", "info"}
	InteractionTypes      = []string{"synergistic", "competitive", "antagonistic", "neutral"}
	InteractionSeverities = []string{"beneficial", "mild", "moderate", "severe", "critical"}
	Levels                = []string{"high", "medium", "low"}
	Costs                 = []string{"free", "low", "medium", "high"}
	Difficulties          = []string{"easy", "moderate", "challenging"}
	EvidenceLevels        = []string{"strong", "moderate", "limited", "emerging"}
)

// FieldError names one schema violation.
type FieldError struct {
	Path    string
	Message string
}

// SchemaError collects every violation found while validating a payload.
type SchemaError struct {
	Fields []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

type fieldChecker struct {
	fields []FieldError
}

func (c *fieldChecker) add(path, format string, args ...any) {
	c.fields = append(c.fields, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *fieldChecker) oneOf(path, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.add(path, "must be one of %s, got %q", strings.Join(allowed, "|"), value)
}

func (c *fieldChecker) between(path string, value, lo, hi float64) {
	if value < lo || value > hi {
		c.add(path, "must be between %g and %g, got %g", lo, hi, value)
	}
}

func (c *fieldChecker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &SchemaError{Fields: c.fields}
}

// Validate checks enumerations and numeric ranges of the report.
func (a SupplementAnalysis) Validate() error {
	var c fieldChecker
	c.oneOf("summary.overallStatus", string(a.Summary.OverallStatus), OverallStatuses)
	if sb := a.Summary.ScoreBreakdown; sb != nil {
		c.between("summary.scoreBreakdown.safety", sb.Safety, 0, 100)
		c.between("summary.scoreBreakdown.effectiveness", sb.Effectiveness, 0, 100)
		c.between("summary.scoreBreakdown.personalization", sb.Personalization, 0, 100)
	}
	for i, al := range a.Alerts {
		c.oneOf(fmt.Sprintf("alerts[%d].priority", i), al.Priority, AlertPriorities)
	}
	for i, s := range a.Supplements {
		c.between(fmt.Sprintf("supplements[%d].effectiveness.rating", i), s.Effectiveness.Rating, 1, 10)
		c.between(fmt.Sprintf("supplements[%d].safety.rating", i), s.Safety.Rating, 1, 10)
	}
	for i, in := range a.Interactions {
		c.oneOf(fmt.Sprintf("interactions[%d].type", i), in.Type, InteractionTypes)
		c.oneOf(fmt.Sprintf("interactions[%d].severity", i), in.Severity, InteractionSeverities)
	}
	for i, op := range a.Opportunities {
		c.oneOf(fmt.Sprintf("opportunities[%d].priority", i), op.Priority, Levels)
		c.oneOf(fmt.Sprintf("opportunities[%d].implementation.cost", i), op.Implementation.Cost, Costs)
		c.oneOf(fmt.Sprintf("opportunities[%d].implementation.difficulty", i), op.Implementation.Difficulty, Difficulties)
		c.oneOf(fmt.Sprintf("opportunities[%d].evidence", i), op.Evidence, EvidenceLevels)
	}
	for i, in := range a.Insights {
		c.oneOf(fmt.Sprintf("insights[%d].relevance", i), in.Relevance, Levels)
	}
	for i, ed := range a.Education {
		c.oneOf(fmt.Sprintf("education[%d].importance", i), ed.Importance, Levels)
	}
	return c.err()
}
