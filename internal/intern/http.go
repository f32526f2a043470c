package intern

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"intern-service/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// IdentityFunc returns the authenticated intern's id from the request context.
type IdentityFunc func(ctx context.Context) (uuid.UUID, bool)

type Handler struct {
	service  Service
	identity IdentityFunc
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, identity IdentityFunc, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		identity: identity,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/interns/{id}", h.GetIntern)
	router.Post("/referral", h.SimulateReferral)
}

// RegisterProtectedRoutes expects router to run the auth middleware.
func (h *Handler) RegisterProtectedRoutes(router chi.Router) {
	router.Get("/interns/me", h.GetMe)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	intern, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, NewDashboard(intern))
}

func (h *Handler) GetIntern(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid intern ID")
		return
	}

	intern, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, NewDashboard(intern))
}

// SimulateReferral is the demo endpoint crediting one referral bonus.
func (h *Handler) SimulateReferral(w http.ResponseWriter, r *http.Request) {
	var req SimulateReferralRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "userId must be a valid intern ID")
		return
	}

	id, _ := uuid.Parse(req.UserID)

	h.logger.InfoContext(r.Context(), "simulating referral", "intern_id", id)
	intern, err := h.service.SimulateReferral(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, NewDashboard(intern))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInternNotFound) {
		h.logger.InfoContext(r.Context(), "intern not found")
		httputil.RespondWithError(w, http.StatusNotFound, "Intern not found")
		return
	}
	if errors.Is(err, ErrInvalidInput) {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
