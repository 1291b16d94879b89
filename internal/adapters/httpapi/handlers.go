package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"atlas/internal/ai"
	"atlas/internal/core"
	"atlas/internal/draft"
	"atlas/internal/presets"
	"atlas/internal/storage"
	"atlas/pkg/domain"
)

const maxBodyBytes = 32 << 20

var errNoScanner = errors.New("label scanning is not configured")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	var (
		violation domain.RuleViolationError
		notFound  storage.ErrNotFound
		aiErr     *ai.Error
	)
	switch {
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound), errors.Is(err, draft.ErrNoDraft):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, draft.ErrMissingData), errors.Is(err, core.ErrNoSupplements),
		errors.Is(err, ai.ErrNoImage), errors.Is(err, ai.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoAnalyzer), errors.Is(err, ai.ErrAPIKeyMissing), errors.Is(err, errNoScanner):
		return http.StatusServiceUnavailable
	case errors.As(err, &aiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return false
	}
	return true
}

type mutationResponse struct {
	Item     any                `json:"item,omitempty"`
	Warnings []domain.Violation `json:"warnings,omitempty"`
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) getDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Dashboard())
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Refresh(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) clearStorage(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearStorage(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSupplements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Supplements())
}

func (s *Server) addSupplement(w http.ResponseWriter, r *http.Request) {
	var in domain.NewSupplement
	if !decode(w, r, &in) {
		return
	}
	created, res, err := s.svc.AddSupplement(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Item: created, Warnings: res.Violations})
}

func (s *Server) updateSupplement(w http.ResponseWriter, r *http.Request) {
	var patch domain.SupplementPatch
	if !decode(w, r, &patch) {
		return
	}
	updated, res, err := s.svc.UpdateSupplement(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Item: updated, Warnings: res.Violations})
}

func (s *Server) removeSupplement(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.RemoveSupplement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Warnings: res.Violations})
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Products())
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.NewProduct
	if !decode(w, r, &in) {
		return
	}
	created, res, err := s.svc.AddProduct(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Item: created, Warnings: res.Violations})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if !decode(w, r, &patch) {
		return
	}
	updated, res, err := s.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Item: updated, Warnings: res.Violations})
}

func (s *Server) removeProduct(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.RemoveProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Warnings: res.Violations})
}

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Profile())
}

func (s *Server) setProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.UserProfile
	if !decode(w, r, &profile) {
		return
	}
	if err := s.svc.SetProfile(r.Context(), profile); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Profile())
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if !decode(w, r, &patch) {
		return
	}
	if _, err := s.svc.UpdateProfile(r.Context(), patch); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Profile())
}

func (s *Server) getAnalysis(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.AnalysisView())
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.AnalyzeCurrent(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.AnalysisView())
}

func (s *Server) clearAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearAnalysis(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scanRequest struct {
	Image string `json:"image"`
}

type draftResponse struct {
	Draft  draft.Entry             `json:"draft"`
	Form   draft.Form              `json:"form"`
	Review domain.ExtractionReview `json:"review"`
}

func (s *Server) scanLabel(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.fail(w, r, errNoScanner)
		return
	}
	var req scanRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := s.scanner.Scan(r.Context(), req.Image)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, draftResponse{
		Draft:  entry,
		Form:   draft.FormFromDraft(entry),
		Review: domain.ValidateExtractedData(entry.Product),
	})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.fail(w, r, errNoScanner)
		return
	}
	entry, form, err := s.scanner.Draft()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{
		Draft:  entry,
		Form:   form,
		Review: domain.ValidateExtractedData(entry.Product),
	})
}

func (s *Server) discardDraft(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.fail(w, r, errNoScanner)
		return
	}
	if err := s.scanner.Discard(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) commitDraft(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.fail(w, r, errNoScanner)
		return
	}
	var form draft.Form
	if !decode(w, r, &form) {
		return
	}
	saved, err := s.scanner.Commit(r.Context(), s.svc, form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) listPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets.List()})
}

func (s *Server) loadPreset(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(presets.List()) {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}
	p, err := presets.Load(r.Context(), s.svc, index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preset": p.Name, "state": s.svc.State()})
}
