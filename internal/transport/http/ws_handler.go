package http

import (
	"log"
	"net/http"
	"strconv"

	"codegaming-service/internal/app"
	"codegaming-service/internal/domain"
	"codegaming-service/internal/game"
	"github.com/gorilla/websocket"
)

// WSHandler streams live leaderboard pages. A client subscribes with a scope
// and game type; it receives the current page on connect and a fresh page
// whenever a result is reported.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the leaderboard feed to the socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	scope, ok := domain.ParseScope(query.Get("scope"))
	if !ok {
		http.Error(w, "unknown scope", http.StatusBadRequest)
		return
	}
	gameType := query.Get("game_type")
	if gameType == "" {
		gameType = string(game.TypeQuiz)
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	viewer := query.Get("viewer")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Feed().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	push := func() {
		lb, err := h.service.Leaderboard(r.Context(), scope, gameType, 1, pageSize, viewer)
		if err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-closeSignals:
			}
			return
		}
		select {
		case send <- outboundMessage[any]{Type: "leaderboard", Payload: lb}:
		case <-closeSignals:
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case result, ok := <-updates:
				if !ok {
					return
				}
				if result.GameType != gameType {
					continue
				}
				push()
			case <-closeSignals:
				return
			}
		}
	}()

	push()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "refresh":
			push()
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
