// Package mcptools exposes the tracker to MCP clients.
//
// Every tool is a struct holding the service with Definition returning the
// schema and Handle serving calls. Domain failures come back as tool errors,
// never as protocol errors.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"atlas/internal/core"
	"atlas/internal/presets"
	"atlas/pkg/domain"
)

// Tool is one MCP tool.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every tool backed by svc.
func Tools(svc *core.Service) []Tool {
	return []Tool{
		&ListStackTool{svc: svc},
		&AddSupplementTool{svc: svc},
		&RemoveSupplementTool{svc: svc},
		&UpdateProfileTool{svc: svc},
		&RunAnalysisTool{svc: svc},
		&ShowAnalysisTool{svc: svc},
		&LoadPresetTool{svc: svc},
	}
}

// NewServer returns an MCP server with all tools registered.
func NewServer(svc *core.Service, version string) *server.MCPServer {
	s := server.NewMCPServer("atlas", version, server.WithToolCapabilities(true))
	for _, t := range Tools(svc) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// ListStackTool handles atlas_list_stack.
type ListStackTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_list_stack.
func (t *ListStackTool) Definition() mcp.Tool {
	return mcp.NewTool("atlas_list_stack",
		mcp.WithDescription("List the current supplement stack, the products it came from and the user profile."),
	)
}

// Handle processes the atlas_list_stack tool call.
func (t *ListStackTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := t.svc.State()
	var b strings.Builder
	if len(st.Supplements) == 0 {
		b.WriteString("No supplements in the stack.\n")
	} else {
		fmt.Fprintf(&b, "Supplements (%d):\n", len(st.Supplements))
		for _, s := range st.Supplements {
			fmt.Fprintf(&b, "- %s: %s, %s", s.Name, s.Dosage, s.Frequency)
			if s.Timing != "" {
				fmt.Fprintf(&b, ", %s", s.Timing)
			}
			fmt.Fprintf(&b, " [id %s]\n", s.ID)
		}
	}
	if len(st.Products) > 0 {
		fmt.Fprintf(&b, "\nProducts (%d):\n", len(st.Products))
		for _, p := range st.Products {
			fmt.Fprintf(&b, "- %s", p.Name)
			if p.Brand != "" {
				fmt.Fprintf(&b, " by %s", p.Brand)
			}
			fmt.Fprintf(&b, " [id %s]\n", p.ID)
		}
	}
	if p := st.Profile; p != (domain.UserProfile{}) {
		b.WriteString("\nProfile:\n")
		for _, f := range profileFields(p) {
			if f.value != "" {
				fmt.Fprintf(&b, "- %s: %s\n", f.label, f.value)
			}
		}
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

type profileField struct {
	key, label, value string
}

func profileFields(p domain.UserProfile) []profileField {
	return []profileField{
		{"name", "Name", p.Name},
		{"age", "Age", p.Age},
		{"gender", "Gender", p.Gender},
		{"weight", "Weight", p.Weight},
		{"health_goals", "Health goals", p.HealthGoals},
		{"medical_conditions", "Medical conditions", p.MedicalConditions},
		{"current_medications", "Current medications", p.CurrentMedications},
		{"allergies", "Allergies", p.Allergies},
	}
}

// AddSupplementTool handles atlas_add_supplement.
type AddSupplementTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_add_supplement.
func (t *AddSupplementTool) Definition() mcp.Tool {
	return mcp.NewTool("atlas_add_supplement",
		mcp.WithDescription("Add a supplement to the stack."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Supplement name, e.g. 'Vitamin D3'")),
		mcp.WithString("dosage", mcp.Required(), mcp.Description("Amount per serving, e.g. '1000 IU'")),
		mcp.WithString("frequency", mcp.Description("How often it is taken (default: Daily)")),
		mcp.WithString("timing", mcp.Description("When it is taken, e.g. 'With breakfast'")),
		mcp.WithString("product_id", mcp.Description("Product the supplement belongs to")),
	)
}

// Handle processes the atlas_add_supplement tool call.
func (t *AddSupplementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := domain.NewSupplement{
		Name:      strings.TrimSpace(req.GetString("name", "")),
		Dosage:    strings.TrimSpace(req.GetString("dosage", "")),
		Frequency: strings.TrimSpace(req.GetString("frequency", "Daily")),
		Timing:    strings.TrimSpace(req.GetString("timing", "")),
		ProductID: req.GetString("product_id", ""),
	}
	created, res, err := t.svc.AddSupplement(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add supplement: %v", err)), nil
	}
	text := fmt.Sprintf("Added %s (%s, %s)\nID: %s", created.Name, created.Dosage, created.Frequency, created.ID)
	return mcp.NewToolResultText(text + warnings(res)), nil
}

func warnings(res domain.Result) string {
	var b strings.Builder
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			fmt.Fprintf(&b, "\nWarning: %s", v.Message)
		}
	}
	return b.String()
}

// RemoveSupplementTool handles atlas_remove_supplement.
type RemoveSupplementTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_remove_supplement.
func (t *RemoveSupplementTool) Definition() mcp.Tool {
	return mcp.NewTool("atlas_remove_supplement",
		mcp.WithDescription("Remove a supplement from the stack by id (see atlas_list_stack)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Supplement id")),
	)
}

// Handle processes the atlas_remove_supplement tool call.
func (t *RemoveSupplementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	var name string
	for _, s := range t.svc.State().Supplements {
		if s.ID == id {
			name = s.Name
		}
	}
	if name == "" {
		return mcp.NewToolResultError(fmt.Sprintf("no supplement with id %s", id)), nil
	}
	if _, err := t.svc.RemoveSupplement(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to remove supplement: %v", err)), nil
	}
	return mcp.NewToolResultText("Removed " + name), nil
}

// UpdateProfileTool handles atlas_update_profile.
type UpdateProfileTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_update_profile.
func (t *UpdateProfileTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Update profile fields used to personalize analysis. Omitted fields are kept."),
	}
	for _, f := range profileFields(domain.UserProfile{}) {
		opts = append(opts, mcp.WithString(f.key, mcp.Description(f.label)))
	}
	return mcp.NewTool("atlas_update_profile", opts...)
}

// Handle processes the atlas_update_profile tool call.
func (t *UpdateProfileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	str := func(key string) *string {
		v, ok := args[key].(string)
		if !ok {
			return nil
		}
		v = strings.TrimSpace(v)
		return &v
	}
	patch := domain.ProfilePatch{
		Name:               str("name"),
		Age:                str("age"),
		Gender:             str("gender"),
		Weight:             str("weight"),
		HealthGoals:        str("health_goals"),
		MedicalConditions:  str("medical_conditions"),
		CurrentMedications: str("current_medications"),
		Allergies:          str("allergies"),
	}
	profile, err := t.svc.UpdateProfile(ctx, patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update profile: %v", err)), nil
	}
	var b strings.Builder
	b.WriteString("Profile updated")
	for _, f := range profileFields(profile) {
		if f.value != "" {
			fmt.Fprintf(&b, "\n- %s: %s", f.label, f.value)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// RunAnalysisTool handles atlas_run_analysis.
type RunAnalysisTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_run_analysis.
func (t *RunAnalysisTool) Definition() mcp.Tool {
	return mcp.NewTool("atlas_run_analysis",
		mcp.WithDescription("Analyze the current stack against the profile and store the report. Takes up to a minute."),
	)
}

// Handle processes the atlas_run_analysis tool call.
func (t *RunAnalysisTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := t.svc.AnalyzeCurrent(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(FormatAnalysis(report)), nil
}

// ShowAnalysisTool handles atlas_show_analysis.
type ShowAnalysisTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_show_analysis.
func (t *ShowAnalysisTool) Definition() mcp.Tool {
	return mcp.NewTool("atlas_show_analysis",
		mcp.WithDescription("Show the last stored analysis report and when it was produced."),
	)
}

// Handle processes the atlas_show_analysis tool call.
func (t *ShowAnalysisTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := t.svc.AnalysisView()
	if view.Analysis == nil {
		return mcp.NewToolResultText("No analysis yet. Run atlas_run_analysis first."), nil
	}
	text := FormatAnalysis(view.Analysis)
	if d := t.svc.Dashboard(); d.LastAnalyzed != "" {
		text = "Last analyzed: " + d.LastAnalyzed + "\n\n" + text
	}
	return mcp.NewToolResultText(text), nil
}

// LoadPresetTool handles atlas_load_preset.
type LoadPresetTool struct{ svc *core.Service }

// Definition returns the MCP tool definition for atlas_load_preset.
func (t *LoadPresetTool) Definition() mcp.Tool {
	names := make([]string, 0, 3)
	for _, p := range presets.List() {
		names = append(names, p.Name)
	}
	return mcp.NewTool("atlas_load_preset",
		mcp.WithDescription("Replace all data with a demo preset. This deletes the current stack, products, profile and analysis."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Preset name"), mcp.Enum(names...)),
	)
}

// Handle processes the atlas_load_preset tool call.
func (t *LoadPresetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	for i, p := range presets.List() {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if _, err := presets.Load(ctx, t.svc, i); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Loaded %s: %d supplements for %s", p.Name, len(p.Supplements), p.Profile.Name)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown preset %q", name)), nil
}

// FormatAnalysis renders a report as plain text.
func FormatAnalysis(a *domain.SupplementAnalysis) string {
	var b strings.Builder
	s := a.Summary
	fmt.Fprintf(&b, "Status: %s\n%s\n", s.OverallStatus, s.KeyMessage)
	fmt.Fprintf(&b, "Supplements: %d, issues: %d, benefits: %d\n", s.SupplementCount, s.IssueCount, s.BenefitCount)
	if sb := s.ScoreBreakdown; sb != nil {
		fmt.Fprintf(&b, "Scores: safety %.0f, effectiveness %.0f, personalization %.0f\n", sb.Safety, sb.Effectiveness, sb.Personalization)
	}
	if s.NextAction != "" {
		fmt.Fprintf(&b, "Next action: %s\n", s.NextAction)
	}
	if len(a.Alerts) > 0 {
		b.WriteString("\nAlerts:\n")
		for _, al := range a.Alerts {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", al.Priority, al.Title, al.Message)
		}
	}
	if len(a.Interactions) > 0 {
		b.WriteString("\nInteractions:\n")
		for _, in := range a.Interactions {
			fmt.Fprintf(&b, "- %s (%s, %s): %s", strings.Join(in.Supplements, " + "), in.Type, in.Severity, in.Description)
			if in.Management.Recommendation != "" {
				fmt.Fprintf(&b, " %s.", strings.TrimSuffix(in.Management.Recommendation, "."))
			}
			b.WriteString("\n")
		}
	}
	if len(a.Opportunities) > 0 {
		b.WriteString("\nOpportunities:\n")
		for _, o := range a.Opportunities {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", o.Priority, o.Title, o.Description)
		}
	}
	if a.Disclaimer != "" {
		fmt.Fprintf(&b, "\n%s", a.Disclaimer)
	}
	return strings.TrimRight(b.String(), "\n")
}
