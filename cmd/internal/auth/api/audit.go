package authapi

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Security audit events go to the "audit" group of the handler logger.
// Token values are never logged; identities are logged by id.

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP) {
	h.audit.InfoContext(ctx, "auth.register", "user_id", userID, "ip", ipString(ip))
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP) {
	h.audit.InfoContext(ctx, "auth.login.success", "user_id", userID, "ip", ipString(ip))
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, reason string) {
	h.audit.WarnContext(ctx, "auth.login.failed", "ip", ipString(ip), "reason", reason)
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, userID string, ip net.IP) {
	h.audit.InfoContext(ctx, "auth.refresh.success", "user_id", userID, "ip", ipString(ip))
}

func (h *Handler) auditRefreshRejected(ctx context.Context, code string, ip net.IP) {
	h.audit.InfoContext(ctx, "auth.refresh.rejected", "code", code, "ip", ipString(ip))
}

func (h *Handler) auditRefreshReuse(ctx context.Context, userID string, ip net.IP) {
	h.audit.WarnContext(ctx, "auth.refresh.reuse_detected", "user_id", userID, "ip", ipString(ip))
}

func (h *Handler) auditLogout(ctx context.Context, userID string, removed bool, ip net.IP) {
	h.audit.InfoContext(ctx, "auth.logout", "user_id", userID, "removed", removed, "ip", ipString(ip))
}

func (h *Handler) auditRateLimited(ctx context.Context, route string, ip net.IP, retryAfter time.Duration) {
	h.audit.WarnContext(ctx, "auth.rate_limited",
		slog.String("route", route),
		slog.String("ip", ipString(ip)),
		slog.Int64("retry_after_s", int64(retryAfter.Seconds())),
	)
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
