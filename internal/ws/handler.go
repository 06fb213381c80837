package ws

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/internlink/backend/internal/logger"
)

// Handler upgrades /ws?user_id=<uuid> requests and registers the socket
// with the hub.
type Handler struct {
	hub            *Hub
	log            *logger.Logger
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

func NewHandler(hub *Hub, allowedOrigins []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		hub:            hub,
		log:            log.With("component", "ws"),
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			h.allowedOrigins = nil
			h.allowedHosts = nil
			break
		}
		h.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			h.allowedHosts[parsed.Host] = true
		}
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil || userID == uuid.Nil {
		http.Error(w, "user_id must be a uuid", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade", "error", err)
		return
	}

	c, err := h.hub.AddClient(userID, conn)
	if err != nil {
		code := websocket.CloseInternalServerErr
		if errors.Is(err, ErrTooManyConnections) {
			code = websocket.CloseTryAgainLater
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
		_ = conn.Close()
		return
	}
	h.log.Debug("ws client connected", "user_id", userID, "remote", r.RemoteAddr)
	go c.readPump()
}

// checkOrigin accepts same-host and loopback origins, or only the
// configured ones when a list is set. A "*" entry accepts everything.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.allowedOrigins == nil {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(h.allowedOrigins) > 0 {
		if h.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return h.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Hostname()
	if parsed.Host == r.Host {
		return true
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
