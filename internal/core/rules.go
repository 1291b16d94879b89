package core

import (
	"context"
	"strings"

	"atlas/pkg/domain"
)

type (
	Rule        = domain.Rule
	RulesEngine = domain.RulesEngine
	Result      = domain.Result
	Violation   = domain.Violation
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewRequiredSupplementFieldsRule())
	engine.Register(NewProductReferenceRule())
	engine.Register(NewDuplicateSupplementRule())
	engine.Register(NewProductNameRule())
	return engine
}

// ruleView is a point-in-time read of the collections rules may inspect.
type ruleView struct {
	supplements []domain.Supplement
	products    []domain.Product
}

func (v ruleView) ListSupplements() []domain.Supplement { return v.supplements }
func (v ruleView) ListProducts() []domain.Product       { return v.products }

func (v ruleView) FindProduct(id string) (domain.Product, bool) {
	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

type requiredSupplementFieldsRule struct{}

// NewRequiredSupplementFieldsRule blocks supplements without a name, dosage or frequency.
func NewRequiredSupplementFieldsRule() Rule { return requiredSupplementFieldsRule{} }

func (requiredSupplementFieldsRule) Name() string { return "supplement_required_fields" }

func (r requiredSupplementFieldsRule) Evaluate(_ context.Context, _ domain.RuleView, mutations []domain.Mutation) (Result, error) {
	var res Result
	for _, m := range mutations {
		s, ok := m.After.(domain.Supplement)
		if !ok || m.Entity != domain.EntitySupplement {
			continue
		}
		for _, f := range []struct{ label, value string }{
			{"name", s.Name},
			{"dosage", s.Dosage},
			{"frequency", s.Frequency},
		} {
			if strings.TrimSpace(f.value) == "" {
				res.Violations = append(res.Violations, Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  "Supplement " + f.label + " is required",
					Entity:   domain.EntitySupplement,
					EntityID: s.ID,
				})
			}
		}
	}
	return res, nil
}

type productReferenceRule struct{}

// NewProductReferenceRule blocks supplements linked to a product that does not exist.
func NewProductReferenceRule() Rule { return productReferenceRule{} }

func (productReferenceRule) Name() string { return "supplement_product_reference" }

func (r productReferenceRule) Evaluate(_ context.Context, view domain.RuleView, mutations []domain.Mutation) (Result, error) {
	var res Result
	for _, m := range mutations {
		s, ok := m.After.(domain.Supplement)
		if !ok || s.ProductID == "" {
			continue
		}
		if _, found := view.FindProduct(s.ProductID); !found {
			res.Violations = append(res.Violations, Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  "Product " + s.ProductID + " does not exist",
				Entity:   domain.EntitySupplement,
				EntityID: s.ID,
			})
		}
	}
	return res, nil
}

type duplicateSupplementRule struct{}

// NewDuplicateSupplementRule warns when a new supplement repeats an existing name.
func NewDuplicateSupplementRule() Rule { return duplicateSupplementRule{} }

func (duplicateSupplementRule) Name() string { return "supplement_duplicate_name" }

func (r duplicateSupplementRule) Evaluate(_ context.Context, view domain.RuleView, mutations []domain.Mutation) (Result, error) {
	var res Result
	for _, m := range mutations {
		s, ok := m.After.(domain.Supplement)
		if !ok || m.Action != domain.ActionCreate {
			continue
		}
		name := strings.TrimSpace(s.Name)
		for _, existing := range view.ListSupplements() {
			if name != "" && strings.EqualFold(strings.TrimSpace(existing.Name), name) {
				res.Violations = append(res.Violations, Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  s.Name + " is already in the stack",
					Entity:   domain.EntitySupplement,
					EntityID: existing.ID,
				})
				break
			}
		}
	}
	return res, nil
}

type productNameRule struct{}

// NewProductNameRule blocks products without a name.
func NewProductNameRule() Rule { return productNameRule{} }

func (productNameRule) Name() string { return "product_required_name" }

func (r productNameRule) Evaluate(_ context.Context, _ domain.RuleView, mutations []domain.Mutation) (Result, error) {
	var res Result
	for _, m := range mutations {
		p, ok := m.After.(domain.Product)
		if !ok {
			continue
		}
		if strings.TrimSpace(p.Name) == "" {
			res.Violations = append(res.Violations, Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  "Product name is required",
				Entity:   domain.EntityProduct,
				EntityID: p.ID,
			})
		}
	}
	return res, nil
}
