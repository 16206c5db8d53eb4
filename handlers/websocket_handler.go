package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/arena-escrow/realtime"
	"github.com/Dosada05/arena-escrow/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	registry services.MatchRegistry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler принимает разрешённые Origin; "*" разрешает любой.
func NewWebSocketHandler(hub *realtime.Hub, registry services.MatchRegistry, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeLobby - поток событий набора матчей: /ws/lobby
func (h *WebSocketHandler) ServeLobby(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, realtime.LobbyRoom)
}

// ServeMatch - поток событий одного матча: /ws/matches/{matchID}
func (h *WebSocketHandler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.registry.GetMatch(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.serve(w, r, realtime.MatchRoom(matchID))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.Warn("failed to upgrade websocket connection", slog.String("room", room), slog.Any("error", err))
		return
	}

	client := h.hub.NewClient(conn, room)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
