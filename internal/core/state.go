package core

import (
	"fmt"
	"time"

	"atlas/pkg/domain"
)

// State is the in-memory mirror of everything in storage plus the status of
// the most recent operation.
type State struct {
	Supplements    []domain.Supplement        `json:"supplements"`
	Products       []domain.Product           `json:"products"`
	Profile        domain.UserProfile         `json:"profile"`
	Analysis       *domain.SupplementAnalysis `json:"analysis"`
	LastAnalyzedAt *time.Time                 `json:"lastAnalyzedAt"`
	IsLoading      bool                       `json:"isLoading"`
	Error          string                     `json:"error,omitempty"`
}

func initialState() State {
	return State{
		Supplements: []domain.Supplement{},
		Products:    []domain.Product{},
		IsLoading:   true,
	}
}

func (s State) clone() State {
	out := s
	out.Supplements = append([]domain.Supplement(nil), s.Supplements...)
	out.Products = append([]domain.Product(nil), s.Products...)
	if out.Supplements == nil {
		out.Supplements = []domain.Supplement{}
	}
	if out.Products == nil {
		out.Products = []domain.Product{}
	}
	if s.LastAnalyzedAt != nil {
		at := *s.LastAnalyzedAt
		out.LastAnalyzedAt = &at
	}
	return out
}

// SupplementsView is the supplement slice of State.
type SupplementsView struct {
	Supplements []domain.Supplement `json:"supplements"`
	IsLoading   bool                `json:"isLoading"`
	Error       string              `json:"error,omitempty"`
}

// ProductsView is the product slice of State.
type ProductsView struct {
	Products  []domain.Product `json:"products"`
	IsLoading bool             `json:"isLoading"`
	Error     string           `json:"error,omitempty"`
}

// ProfileView is the profile slice of State.
type ProfileView struct {
	Profile   domain.UserProfile `json:"profile"`
	IsLoading bool               `json:"isLoading"`
	Error     string             `json:"error,omitempty"`
}

// AnalysisView is the analysis slice of State.
type AnalysisView struct {
	Analysis       *domain.SupplementAnalysis `json:"analysis"`
	LastAnalyzedAt *time.Time                 `json:"lastAnalyzedAt"`
	IsLoading      bool                       `json:"isLoading"`
	Error          string                     `json:"error,omitempty"`
}

// HomeState classifies what the dashboard should show.
type HomeState string

// Dashboard states.
const (
	HomeAnalyzing HomeState = "analyzing"
	HomeEmpty     HomeState = "empty"
	HomeReady     HomeState = "ready"
	HomeCritical  HomeState = "critical"
	HomeComplete  HomeState = "complete"
)

// Dashboard summarizes State for a home screen.
type Dashboard struct {
	State              HomeState `json:"state"`
	SupplementCount    int       `json:"supplementCount"`
	IssueCount         int       `json:"issueCount"`
	LastAnalyzed       string    `json:"lastAnalyzed,omitempty"`
	ProfileRecommended bool      `json:"profileRecommended"`
}

// Dashboard derives the home summary at time now.
func (s State) Dashboard(now time.Time) Dashboard {
	d := Dashboard{
		SupplementCount:    len(s.Supplements),
		ProfileRecommended: s.Profile.IsSparse(),
		LastAnalyzed:       LastAnalyzedText(now, s.LastAnalyzedAt),
	}
	if s.Analysis != nil {
		d.IssueCount = s.Analysis.Summary.IssueCount
	}
	switch {
	case s.IsLoading:
		d.State = HomeAnalyzing
	case len(s.Supplements) == 0:
		d.State = HomeEmpty
	case s.Analysis == nil:
		d.State = HomeReady
	case s.Analysis.Summary.IssueCount > 0:
		d.State = HomeCritical
	default:
		d.State = HomeComplete
	}
	return d
}

// LastAnalyzedText renders the age of an analysis as "3d ago", "5h ago" or
// "Just now". It returns "" when at is nil.
func LastAnalyzedText(now time.Time, at *time.Time) string {
	if at == nil {
		return ""
	}
	hours := int(now.Sub(*at) / time.Hour)
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return "Just now"
	}
}
