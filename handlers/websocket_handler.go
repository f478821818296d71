package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub *events.Hub
}

func NewWebSocketHandler(hub *events.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// SubscribeTournamentHandler handles GET /ws/tournaments/{tournamentID},
// streaming that tournament's notifications.
func (h *WebSocketHandler) SubscribeTournamentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.subscribe(w, r, events.TournamentRoom(id))
}

// SubscribeLobbyHandler handles GET /ws/tournaments, streaming every
// notification for list views.
func (h *WebSocketHandler) SubscribeLobbyHandler(w http.ResponseWriter, r *http.Request) {
	h.subscribe(w, r, "tournaments")
}

func (h *WebSocketHandler) subscribe(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &events.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: room,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
