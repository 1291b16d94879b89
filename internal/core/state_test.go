package core

import (
	"testing"
	"time"

	"atlas/pkg/domain"
)

func TestDashboardStates(t *testing.T) {
	sups := []domain.Supplement{{ID: "sup_1", Name: "Zinc"}}
	cases := []struct {
		name  string
		state State
		want  HomeState
	}{
		{"loading wins", State{IsLoading: true, Supplements: sups, Analysis: sampleReport(3)}, HomeAnalyzing},
		{"empty stack", State{}, HomeEmpty},
		{"ready", State{Supplements: sups}, HomeReady},
		{"critical", State{Supplements: sups, Analysis: sampleReport(1)}, HomeCritical},
		{"complete", State{Supplements: sups, Analysis: sampleReport(0)}, HomeComplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.state.Dashboard(fixedNow).State; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDashboardCountsAndProfileHint(t *testing.T) {
	st := State{
		Supplements: []domain.Supplement{{ID: "a"}, {ID: "b"}},
		Analysis:    sampleReport(4),
	}
	d := st.Dashboard(fixedNow)
	if d.SupplementCount != 2 || d.IssueCount != 4 {
		t.Fatalf("unexpected counts %+v", d)
	}
	if !d.ProfileRecommended {
		t.Fatalf("expected profile hint for empty profile")
	}
	st.Profile = domain.UserProfile{Gender: "female"}
	if !st.Dashboard(fixedNow).ProfileRecommended {
		t.Fatalf("gender alone does not make a profile complete")
	}
	st.Profile.HealthGoals = "energy"
	if st.Dashboard(fixedNow).ProfileRecommended {
		t.Fatalf("expected hint to clear once goals are set")
	}
}

func TestLastAnalyzedText(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := fixedNow.Add(-d)
		return &v
	}
	cases := []struct {
		at   *time.Time
		want string
	}{
		{nil, ""},
		{at(0), "Just now"},
		{at(59 * time.Minute), "Just now"},
		{at(5 * time.Hour), "5h ago"},
		{at(23*time.Hour + 59*time.Minute), "23h ago"},
		{at(49 * time.Hour), "2d ago"},
	}
	for _, tc := range cases {
		if got := LastAnalyzedText(fixedNow, tc.at); got != tc.want {
			t.Fatalf("LastAnalyzedText(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestStateCloneNormalizesSlices(t *testing.T) {
	at := fixedNow
	st := State{LastAnalyzedAt: &at}
	cp := st.clone()
	if cp.Supplements == nil || cp.Products == nil {
		t.Fatalf("expected non-nil slices in clone")
	}
	*cp.LastAnalyzedAt = fixedNow.Add(time.Hour)
	if !st.LastAnalyzedAt.Equal(fixedNow) {
		t.Fatalf("clone must not share the timestamp")
	}
}
