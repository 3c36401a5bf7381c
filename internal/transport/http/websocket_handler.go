package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"dailyindex/internal/config"
	apierrors "dailyindex/internal/errors"
	"dailyindex/internal/infrastructure"
	ws "dailyindex/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and hands the connection to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates the handler. allowedOrigins may contain "*".
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		logger: logger.With(slog.String("handler", "websocket")),
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     originChecker(allowedOrigins),
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "websocket upgrade failed",
				slog.Int("status", status),
				slog.String("error", reason.Error()))
			errorHandler.HandleError(w, r, apierrors.New(status, apierrors.CodeWebSocketUpgrade, apierrors.ErrWebSocketUpgrade.Message))
		},
	}
	return h
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := ws.ServeConn(h.hub, ws.WrapConn(conn), infrastructure.GetTraceID(r.Context()))
	if client == nil {
		h.logger.WarnContext(r.Context(), "hub stopped, websocket closed")
	}
}

// originChecker allows requests without an Origin header, same-host
// origins and the configured list.
func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}
