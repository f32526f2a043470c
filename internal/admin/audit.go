package admin

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditLogger writes one structured record per admin action.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With(slog.String("log_type", "audit"))}
}

func (a *AuditLogger) LogAction(ctx context.Context, actor, action, resource, resourceID, status, details string) {
	a.logger.InfoContext(ctx, "audit",
		slog.String("actor", actor),
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)
}

func (a *AuditLogger) LogLogin(ctx context.Context, username, status string) {
	a.LogAction(ctx, username, "login", "admin", "", status, "")
}

func (a *AuditLogger) LogAmountChange(ctx context.Context, actor, internID string, amount float64, status string) {
	a.LogAction(ctx, actor, "update_amount", "intern", internID, status, slog.Float64Value(amount).String())
}

func (a *AuditLogger) LogDeletion(ctx context.Context, actor, resource, resourceID, status string) {
	a.LogAction(ctx, actor, "delete", resource, resourceID, status, "")
}
