package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atlas/pkg/domain"
)

// ErrNotFound is returned when an update targets a record that does not exist.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	name := string(e.Entity)
	if name == "" {
		return "record not found"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " not found"
}

// SupplementStore manages the supplements collection.
type SupplementStore struct{ s *Storage }

// ProductStore manages the products collection.
type ProductStore struct{ s *Storage }

// ProfileStore manages the single user profile document.
type ProfileStore struct{ s *Storage }

// AnalysisStore manages the last stored analysis.
type AnalysisStore struct{ s *Storage }

// Supplements returns the supplement helper.
func (s *Storage) Supplements() SupplementStore { return SupplementStore{s} }

// Products returns the product helper.
func (s *Storage) Products() ProductStore { return ProductStore{s} }

// Profile returns the profile helper.
func (s *Storage) Profile() ProfileStore { return ProfileStore{s} }

// Analysis returns the analysis helper.
func (s *Storage) Analysis() AnalysisStore { return AnalysisStore{s} }

// List returns every supplement. A missing or non-array payload yields an empty list.
func (st SupplementStore) List(ctx context.Context) ([]domain.Supplement, error) {
	var out []domain.Supplement
	if _, err := st.s.Get(ctx, domain.KeySupplements, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Supplement{}
	}
	return out, nil
}

// Replace overwrites the whole collection.
func (st SupplementStore) Replace(ctx context.Context, list []domain.Supplement) error {
	return st.s.Set(ctx, domain.KeySupplements, nonNil(list))
}

// Add appends a new supplement with a fresh id and createdAt.
func (st SupplementStore) Add(ctx context.Context, in domain.NewSupplement) (domain.Supplement, error) {
	var created domain.Supplement
	err := st.s.mutate(func() ([]domain.Change, error) {
		list, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		now := st.s.now()
		created = domain.Supplement{
			ID:        st.s.newID(PrefixSupplement, now),
			Name:      in.Name,
			Dosage:    in.Dosage,
			Frequency: in.Frequency,
			Timing:    in.Timing,
			ProductID: in.ProductID,
			CreatedAt: now,
		}
		c, err := st.s.set(ctx, domain.KeySupplements, append(list, created))
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
	if err != nil {
		return domain.Supplement{}, err
	}
	return created, nil
}

// Update merges patch into the supplement with the given id.
func (st SupplementStore) Update(ctx context.Context, id string, patch domain.SupplementPatch) (domain.Supplement, error) {
	var updated domain.Supplement
	err := st.s.mutate(func() ([]domain.Change, error) {
		list, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		idx := indexOf(list, func(s domain.Supplement) bool { return s.ID == id })
		if idx == -1 {
			return nil, ErrNotFound{Entity: domain.EntitySupplement, ID: id}
		}
		list[idx] = patch.Apply(list[idx])
		updated = list[idx]
		c, err := st.s.set(ctx, domain.KeySupplements, list)
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
	if err != nil {
		return domain.Supplement{}, err
	}
	return updated, nil
}

// Remove drops the supplement with the given id. The collection is rewritten
// (and listeners notified) even when no record matched.
func (st SupplementStore) Remove(ctx context.Context, id string) error {
	return st.s.mutate(func() ([]domain.Change, error) {
		list, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		c, err := st.s.set(ctx, domain.KeySupplements, filter(list, func(s domain.Supplement) bool { return s.ID != id }))
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
}

// List returns every product. A missing or non-array payload yields an empty list.
func (st ProductStore) List(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if _, err := st.s.Get(ctx, domain.KeyProducts, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}

// Replace overwrites the whole collection.
func (st ProductStore) Replace(ctx context.Context, list []domain.Product) error {
	return st.s.Set(ctx, domain.KeyProducts, nonNil(list))
}

// Add appends a new product with a fresh id and createdAt.
func (st ProductStore) Add(ctx context.Context, in domain.NewProduct) (domain.Product, error) {
	var created domain.Product
	err := st.s.mutate(func() ([]domain.Change, error) {
		list, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		now := st.s.now()
		created = domain.Product{
			ID:        st.s.newID(PrefixProduct, now),
			Name:      in.Name,
			Brand:     in.Brand,
			Timing:    in.Timing,
			ImageURI:  in.ImageURI,
			CreatedAt: now,
		}
		c, err := st.s.set(ctx, domain.KeyProducts, append(list, created))
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return created, nil
}

// Update merges patch into the product with the given id.
func (st ProductStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	var updated domain.Product
	err := st.s.mutate(func() ([]domain.Change, error) {
		list, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		idx := indexOf(list, func(p domain.Product) bool { return p.ID == id })
		if idx == -1 {
			return nil, ErrNotFound{Entity: domain.EntityProduct, ID: id}
		}
		list[idx] = patch.Apply(list[idx])
		updated = list[idx]
		c, err := st.s.set(ctx, domain.KeyProducts, list)
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// Remove drops the product and detaches every supplement that referenced it.
// That is two writes and two notifications; supplements stay in the stack.
func (st ProductStore) Remove(ctx context.Context, id string) error {
	return st.s.mutate(func() ([]domain.Change, error) {
		var changes []domain.Change
		products, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		c, err := st.s.set(ctx, domain.KeyProducts, filter(products, func(p domain.Product) bool { return p.ID != id }))
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)

		supplements, err := st.s.Supplements().List(ctx)
		if err != nil {
			return changes, err
		}
		for i := range supplements {
			if supplements[i].ProductID == id {
				supplements[i].ProductID = ""
			}
		}
		c, err = st.s.set(ctx, domain.KeySupplements, supplements)
		if err != nil {
			return changes, err
		}
		return append(changes, c), nil
	})
}

// Get returns the stored profile, or an empty profile when the payload is
// missing or not an object.
func (st ProfileStore) Get(ctx context.Context) (domain.UserProfile, error) {
	var p domain.UserProfile
	if ok, err := st.s.Get(ctx, domain.KeyProfile, &p); err != nil || !ok {
		return domain.UserProfile{}, err
	}
	return p, nil
}

// Set replaces the profile.
func (st ProfileStore) Set(ctx context.Context, p domain.UserProfile) error {
	return st.s.Set(ctx, domain.KeyProfile, p)
}

// Update shallow-merges patch into the stored profile.
func (st ProfileStore) Update(ctx context.Context, patch domain.ProfilePatch) (domain.UserProfile, error) {
	var merged domain.UserProfile
	err := st.s.mutate(func() ([]domain.Change, error) {
		current, err := st.Get(ctx)
		if err != nil {
			return nil, err
		}
		merged = current.Merge(patch)
		c, err := st.s.set(ctx, domain.KeyProfile, merged)
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return merged, nil
}

// Get returns the stored analysis. Both fields are nil when nothing usable is stored.
func (st AnalysisStore) Get(ctx context.Context) (domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	if ok, err := st.s.Get(ctx, domain.KeyAnalysis, &rec); err != nil || !ok {
		return domain.AnalysisRecord{}, err
	}
	return rec, nil
}

// Set stores analysis with its timestamp. Passing nil for both clears the slot.
func (st AnalysisStore) Set(ctx context.Context, analysis *domain.SupplementAnalysis, at *time.Time) error {
	rec := domain.AnalysisRecord{Analysis: analysis}
	if at != nil {
		utc := at.UTC()
		rec.LastAnalyzedAt = &utc
	}
	if err := st.s.Set(ctx, domain.KeyAnalysis, rec); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func indexOf[T any](list []T, match func(T) bool) int {
	for i, v := range list {
		if match(v) {
			return i
		}
	}
	return -1
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
