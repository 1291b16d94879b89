package core

import (
	"context"

	"atlas/internal/storage"
	"atlas/pkg/domain"
)

// AddSupplement validates and stores a new supplement.
func (s *Service) AddSupplement(ctx context.Context, in domain.NewSupplement) (domain.Supplement, Result, error) {
	var (
		created domain.Supplement
		res     Result
	)
	err := s.run(ctx, opAddSupplement, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := s.guarded(func() error {
			var err error
			res, err = s.evaluate(ctx, domain.Mutation{
				Entity: domain.EntitySupplement,
				Action: domain.ActionCreate,
				After: domain.Supplement{
					Name:      in.Name,
					Dosage:    in.Dosage,
					Frequency: in.Frequency,
					Timing:    in.Timing,
					ProductID: in.ProductID,
				},
			})
			if err != nil {
				return err
			}
			created, err = s.store.Supplements().Add(ctx, in)
			return err
		})
		if err != nil {
			s.fail(err, true)
			return "", err
		}
		return created.ID, nil
	})
	return created, res, err
}

// UpdateSupplement merges patch into an existing supplement.
func (s *Service) UpdateSupplement(ctx context.Context, id string, patch domain.SupplementPatch) (domain.Supplement, Result, error) {
	var (
		updated domain.Supplement
		res     Result
	)
	err := s.run(ctx, opUpdateSupplement, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := s.guarded(func() error {
			list, err := s.store.Supplements().List(ctx)
			if err != nil {
				return err
			}
			before, ok := findSupplement(list, id)
			if !ok {
				return storage.ErrNotFound{Entity: domain.EntitySupplement, ID: id}
			}
			res, err = s.evaluate(ctx, domain.Mutation{
				Entity: domain.EntitySupplement,
				Action: domain.ActionUpdate,
				Before: before,
				After:  patch.Apply(before),
			})
			if err != nil {
				return err
			}
			updated, err = s.store.Supplements().Update(ctx, id, patch)
			return err
		})
		if err != nil {
			s.fail(err, true)
			return id, err
		}
		return id, nil
	})
	return updated, res, err
}

// RemoveSupplement deletes a supplement. Removing an unknown id is not an error.
func (s *Service) RemoveSupplement(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.run(ctx, opRemoveSupplement, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := s.guarded(func() error {
			list, err := s.store.Supplements().List(ctx)
			if err != nil {
				return err
			}
			m := domain.Mutation{Entity: domain.EntitySupplement, Action: domain.ActionDelete}
			if before, ok := findSupplement(list, id); ok {
				m.Before = before
			}
			if res, err = s.evaluate(ctx, m); err != nil {
				return err
			}
			return s.store.Supplements().Remove(ctx, id)
		})
		if err != nil {
			s.fail(err, true)
		}
		return id, err
	})
	return res, err
}

// AddProduct validates and stores a new product.
func (s *Service) AddProduct(ctx context.Context, in domain.NewProduct) (domain.Product, Result, error) {
	var (
		created domain.Product
		res     Result
	)
	err := s.run(ctx, opAddProduct, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := s.guarded(func() error {
			var err error
			res, err = s.evaluate(ctx, domain.Mutation{
				Entity: domain.EntityProduct,
				Action: domain.ActionCreate,
				After: domain.Product{
					Name:     in.Name,
					Brand:    in.Brand,
					Timing:   in.Timing,
					ImageURI: in.ImageURI,
				},
			})
			if err != nil {
				return err
			}
			created, err = s.store.Products().Add(ctx, in)
			return err
		})
		if err != nil {
			s.fail(err, true)
			return "", err
		}
		return created.ID, nil
	})
	return created, res, err
}

// UpdateProduct merges patch into an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, Result, error) {
	var (
		updated domain.Product
		res     Result
	)
	err := s.run(ctx, opUpdateProduct, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := s.guarded(func() error {
			list, err := s.store.Products().List(ctx)
			if err != nil {
				return err
			}
			before, ok := findProduct(list, id)
			if !ok {
				return storage.ErrNotFound{Entity: domain.EntityProduct, ID: id}
			}
			res, err = s.evaluate(ctx, domain.Mutation{
				Entity: domain.EntityProduct,
				Action: domain.ActionUpdate,
				Before: before,
				After:  patch.Apply(before),
			})
			if err != nil {
				return err
			}
			updated, err = s.store.Products().Update(ctx, id, patch)
			return err
		})
		if err != nil {
			s.fail(err, true)
		}
		return id, err
	})
	return updated, res, err
}

// RemoveProduct deletes a product and detaches every supplement linked to it.
func (s *Service) RemoveProduct(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.run(ctx, opRemoveProduct, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := s.guarded(func() error {
			list, err := s.store.Products().List(ctx)
			if err != nil {
				return err
			}
			m := domain.Mutation{Entity: domain.EntityProduct, Action: domain.ActionDelete}
			if before, ok := findProduct(list, id); ok {
				m.Before = before
			}
			if res, err = s.evaluate(ctx, m); err != nil {
				return err
			}
			return s.store.Products().Remove(ctx, id)
		})
		if err != nil {
			s.fail(err, true)
		}
		return id, err
	})
	return res, err
}

// UpdateProfile merges patch into the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.UserProfile, error) {
	var merged domain.UserProfile
	err := s.run(ctx, opUpdateProfile, func(ctx context.Context) (string, error) {
		s.begin(false)
		var err error
		if merged, err = s.store.Profile().Update(ctx, patch); err != nil {
			s.fail(err, false)
		}
		return "", err
	})
	return merged, err
}

// SetProfile replaces the stored profile.
func (s *Service) SetProfile(ctx context.Context, profile domain.UserProfile) error {
	return s.run(ctx, opSetProfile, func(ctx context.Context) (string, error) {
		s.begin(false)
		err := s.store.Profile().Set(ctx, profile)
		if err != nil {
			s.fail(err, false)
		}
		return "", err
	})
}

// ClearAnalysis nulls the stored analysis and its timestamp.
func (s *Service) ClearAnalysis(ctx context.Context) error {
	return s.run(ctx, opClearAnalysis, func(ctx context.Context) (string, error) {
		s.begin(false)
		err := s.store.Analysis().Set(ctx, nil, nil)
		if err != nil {
			s.fail(err, false)
		}
		return "", err
	})
}

// ClearStorage removes every stored record.
func (s *Service) ClearStorage(ctx context.Context) error {
	return s.run(ctx, opClearStorage, func(ctx context.Context) (string, error) {
		s.begin(false)
		err := s.guarded(func() error { return s.store.Clear(ctx) })
		if err != nil {
			s.fail(err, false)
		}
		return "", err
	})
}

// Analyze sends the given stack to the analyzer and stores the report with the
// current time.
func (s *Service) Analyze(ctx context.Context, supplements []domain.Supplement, profile domain.UserProfile) (*domain.SupplementAnalysis, error) {
	var report *domain.SupplementAnalysis
	err := s.run(ctx, opAnalyze, func(ctx context.Context) (string, error) {
		s.begin(true)
		err := func() error {
			if s.analyzer == nil {
				return ErrNoAnalyzer
			}
			var err error
			report, err = s.analyzer.AnalyzeSupplements(ctx, supplements, profile)
			if err != nil {
				return err
			}
			at := s.clock.Now().UTC()
			return s.store.Analysis().Set(ctx, report, &at)
		}()
		if err != nil {
			report = nil
			s.fail(err, true)
			return "", err
		}
		s.setState(func(st *State) { st.IsLoading = false })
		return "", nil
	})
	return report, err
}

// AnalyzeCurrent analyzes the supplements and profile currently in State.
func (s *Service) AnalyzeCurrent(ctx context.Context) (*domain.SupplementAnalysis, error) {
	st := s.State()
	if len(st.Supplements) == 0 {
		return nil, ErrNoSupplements
	}
	return s.Analyze(ctx, st.Supplements, st.Profile)
}

func findSupplement(list []domain.Supplement, id string) (domain.Supplement, bool) {
	for _, sup := range list {
		if sup.ID == id {
			return sup, true
		}
	}
	return domain.Supplement{}, false
}

func findProduct(list []domain.Product, id string) (domain.Product, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}
