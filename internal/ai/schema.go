package ai

import (
	"google.golang.org/genai"

	"atlas/pkg/domain"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func enum(values []string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: values}
}

func integer() *genai.Schema { return &genai.Schema{Type: genai.TypeInteger} }

func number(lo, hi float64) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Minimum: &lo, Maximum: &hi}
}

func list(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

func stringList() *genai.Schema { return list(str("")) }

func object(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

// AnalysisSchema describes domain.SupplementAnalysis without metadata, which
// is stamped locally.
func AnalysisSchema() *genai.Schema {
	summary := object(map[string]*genai.Schema{
		"overallStatus":   enum(domain.OverallStatuses),
		"keyMessage":      str("One sentence headline for the stack"),
		"supplementCount": integer(),
		"issueCount":      integer(),
		"benefitCount":    integer(),
		"nextAction":      str(""),
		"scoreBreakdown": object(map[string]*genai.Schema{
			"safety":          number(0, 100),
			"effectiveness":   number(0, 100),
			"personalization": number(0, 100),
		}, "safety", "effectiveness", "personalization"),
	}, "overallStatus", "keyMessage", "supplementCount", "issueCount", "benefitCount")

	alert := object(map[string]*genai.Schema{
		"priority": enum(domain.AlertPriorities),
		"title":    str(""),
		"message":  str(""),
	}, "priority", "title", "message")

	supplement := object(map[string]*genai.Schema{
		"name":       str(""),
		"assessment": str(""),
		"current": object(map[string]*genai.Schema{
			"dosage":    str(""),
			"frequency": str(""),
		}, "dosage", "frequency"),
		"optimal": object(map[string]*genai.Schema{
			"dosageRange": str(""),
			"frequency":   str(""),
		}, "dosageRange", "frequency"),
		"effectiveness": object(map[string]*genai.Schema{
			"rating":           number(1, 10),
			"expectedBenefits": stringList(),
		}, "rating", "expectedBenefits"),
		"safety": object(map[string]*genai.Schema{
			"rating":   number(1, 10),
			"concerns": stringList(),
		}, "rating", "concerns"),
	}, "name", "assessment", "current", "optimal", "effectiveness", "safety")

	interaction := object(map[string]*genai.Schema{
		"supplements": stringList(),
		"type":        enum(domain.InteractionTypes),
		"severity":    enum(domain.InteractionSeverities),
		"description": str(""),
		"management": object(map[string]*genai.Schema{
			"recommendation": str(""),
		}, "recommendation"),
	}, "supplements", "type", "severity", "description", "management")

	opportunity := object(map[string]*genai.Schema{
		"priority":        enum(domain.Levels),
		"title":           str(""),
		"description":     str(""),
		"expectedBenefit": str(""),
		"implementation": object(map[string]*genai.Schema{
			"steps":      stringList(),
			"timeframe":  str(""),
			"cost":       enum(domain.Costs),
			"difficulty": enum(domain.Difficulties),
		}, "steps", "timeframe", "cost", "difficulty"),
		"evidence": enum(domain.EvidenceLevels),
	}, "priority", "title", "description", "expectedBenefit", "implementation", "evidence")

	insight := object(map[string]*genai.Schema{
		"title":           str(""),
		"description":     str(""),
		"relevance":       enum(domain.Levels),
		"recommendations": stringList(),
	}, "title", "description", "relevance")

	tracking := object(map[string]*genai.Schema{
		"biomarkers": list(object(map[string]*genai.Schema{
			"name":     str(""),
			"target":   str(""),
			"timeline": str(""),
		}, "name", "timeline")),
		"checkpoints": list(object(map[string]*genai.Schema{
			"timeframe":    str(""),
			"expectations": stringList(),
		}, "timeframe", "expectations")),
	}, "biomarkers", "checkpoints")

	education := object(map[string]*genai.Schema{
		"topic":      str(""),
		"content":    str(""),
		"importance": enum(domain.Levels),
	}, "topic", "content", "importance")

	return object(map[string]*genai.Schema{
		"summary":          summary,
		"alerts":           list(alert),
		"supplements":      list(supplement),
		"interactions":     list(interaction),
		"opportunities":    list(opportunity),
		"insights":         list(insight),
		"progressTracking": tracking,
		"education":        list(education),
		"disclaimer":       str("Medical disclaimer shown with the report"),
	}, "summary", "alerts", "supplements", "interactions", "opportunities", "insights", "disclaimer")
}

// ExtractionSchema describes domain.ExtractedProduct.
func ExtractionSchema() *genai.Schema {
	minOne := int64(1)
	supplements := list(object(map[string]*genai.Schema{
		"name":      str("Ingredient name"),
		"dosage":    str("Amount per serving with unit, e.g. 1000 IU"),
		"frequency": str("e.g. Once daily"),
		"timing":    str(""),
		"form":      str(""),
		"notes":     str(""),
	}, "name", "dosage"))
	supplements.MinItems = &minOne

	return object(map[string]*genai.Schema{
		"product": object(map[string]*genai.Schema{
			"name":                 str("Product name as printed"),
			"brand":                str(""),
			"manufacturer":         str(""),
			"category":             enum(domain.ProductCategories),
			"servingsPerContainer": str(""),
			"suggestedUse":         str(""),
			"warnings":             stringList(),
		}, "name", "category"),
		"supplements": supplements,
		"confidence":  number(0, 100),
	}, "product", "supplements")
}
