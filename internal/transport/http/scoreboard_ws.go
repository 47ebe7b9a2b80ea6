package http

import (
	"encoding/json"
	"net/http"
	"time"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeScoreboardWS upgrades to a websocket and streams scoreboard snapshots.
// Clients may send {"type":"refresh"} to force a fresh snapshot.
func (h *Handler) ServeScoreboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	// the feed outlives the server's request timeouts
	_ = conn.UnderlyingConn().SetDeadline(time.Time{})

	log := h.log.WithField("request_id", RequestID(r.Context()))

	if _, err := h.service.Standings(r.Context()); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "scoreboard unavailable"}})
		log.WithError(err).Error("load standings")
		return
	}
	updates, cancel := h.service.Scoreboard().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "scoreboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "refresh":
			if _, err := h.service.Standings(r.Context()); err != nil {
				log.WithError(err).Warn("refresh standings")
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "scoreboard unavailable"}}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
