package contact

import (
	"errors"
	"log/slog"
	"net/http"

	"intern-service/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/contact", h.Submit)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithJSON(w, http.StatusBadRequest, SubmitResponse{Success: false, Message: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithJSON(w, http.StatusBadRequest, SubmitResponse{
			Success: false,
			Message: "Name, a valid email and a message are required.",
		})
		return
	}

	var userID *uuid.UUID
	if req.UserID != "" {
		id, _ := uuid.Parse(req.UserID)
		userID = &id
	}

	if _, err := h.service.Submit(r.Context(), req.Name, req.Email, req.Message, userID); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			httputil.RespondWithJSON(w, http.StatusBadRequest, SubmitResponse{Success: false, Message: err.Error()})
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to store contact message", "error", err)
		httputil.RespondWithJSON(w, http.StatusInternalServerError, SubmitResponse{
			Success: false,
			Message: "Failed to send message. Please try again.",
		})
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, SubmitResponse{
		Success: true,
		Message: "Message received! We'll contact you soon.",
	})
}
