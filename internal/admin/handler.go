package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"intern-service/internal/activity"
	"intern-service/internal/auth"
	"intern-service/internal/contact"
	"intern-service/internal/httputil"
	"intern-service/internal/intern"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SessionRevoker ends every login session of an intern.
type SessionRevoker interface {
	RevokeSessions(ctx context.Context, internID uuid.UUID) error
}

// ActivityReader lists recorded domain events.
type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]activity.Entry, error)
}

type Handler struct {
	service  *Service
	interns  intern.Service
	sessions SessionRevoker
	contacts *contact.Service
	activity ActivityReader
	tokens   *auth.TokenManager
	audit    *AuditLogger
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(
	service *Service,
	interns intern.Service,
	sessions SessionRevoker,
	contacts *contact.Service,
	activity ActivityReader,
	tokens *auth.TokenManager,
	audit *AuditLogger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		interns:  interns,
		sessions: sessions,
		contacts: contacts,
		activity: activity,
		tokens:   tokens,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts everything under /admin. Only login is public.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.tokens, h.logger))
			r.Use(auth.RequireRole(auth.RoleAdmin))

			r.Post("/change-password", h.ChangePassword)
			r.Get("/users", h.ListUsers)
			r.Put("/users/{id}/amount", h.UpdateAmount)
			r.Delete("/users/{id}", h.DeleteUser)
			r.Get("/contacts", h.ListContacts)
			r.Delete("/contacts/{id}", h.DeleteContact)
			r.Get("/activity", h.ListActivity)
		})
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Admin login successful",
		Token:   token,
	})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.adminID(r)
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "current and new password are required, new password at most 72 characters")
		return
	}

	if err := h.service.ChangePassword(r.Context(), adminID, req.CurrentPassword, req.NewPassword); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Password changed successfully"})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	interns, err := h.interns.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, interns)
}

func (h *Handler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "Invalid user ID")
	if !ok {
		return
	}

	var req UpdateAmountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "amount must be a number zero or greater")
		return
	}

	actor := h.actor(r)
	updated, err := h.interns.SetAmount(r.Context(), id, *req.Amount)
	if err != nil {
		h.audit.LogAmountChange(r.Context(), actor, id.String(), *req.Amount, StatusFailure)
		h.handleServiceError(w, r, err)
		return
	}
	h.audit.LogAmountChange(r.Context(), actor, id.String(), *req.Amount, StatusSuccess)

	httputil.RespondWithJSON(w, http.StatusOK, UpdateAmountResponse{
		Success: true,
		Message: "Amount updated successfully",
		User: UserSummary{
			ID:           updated.ID,
			Name:         updated.Name,
			Email:        updated.Email,
			AmountRaised: updated.AmountRaised,
		},
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "Invalid user ID")
	if !ok {
		return
	}

	actor := h.actor(r)
	if err := h.interns.Delete(r.Context(), id); err != nil {
		h.audit.LogDeletion(r.Context(), actor, "intern", id.String(), StatusFailure)
		h.handleServiceError(w, r, err)
		return
	}
	h.audit.LogDeletion(r.Context(), actor, "intern", id.String(), StatusSuccess)

	if err := h.sessions.RevokeSessions(r.Context(), id); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to revoke sessions of deleted intern", "intern_id", id, "error", err)
	}

	httputil.RespondWithJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "User deleted successfully"})
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, contacts)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "Invalid message ID")
	if !ok {
		return
	}

	actor := h.actor(r)
	if err := h.contacts.Delete(r.Context(), id); err != nil {
		h.audit.LogDeletion(r.Context(), actor, "contact", id.String(), StatusFailure)
		h.handleServiceError(w, r, err)
		return
	}
	h.audit.LogDeletion(r.Context(), actor, "contact", id.String(), StatusSuccess)

	httputil.RespondWithJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Message deleted successfully"})
}

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		httputil.RespondWithJSON(w, http.StatusOK, []activity.Entry{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.activity.Recent(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *Handler) adminID(r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) actor(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func parseID(w http.ResponseWriter, r *http.Request, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, intern.ErrInternNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, contact.ErrContactNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Message not found")
	case errors.Is(err, ErrAdminNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Admin not found")
	case errors.Is(err, ErrInvalidCredentials):
		httputil.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, intern.ErrInvalidInput), errors.Is(err, contact.ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
