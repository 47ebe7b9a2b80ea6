package http

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/infra/memory"
	"trivia-board-service/internal/metrics"
)

func TestScoreboardFeedStreamsResolutions(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	service := app.NewGameService(memory.NewStore())
	server := httptest.NewServer(NewRouter(NewHandler(service, log), metrics.New(), log))
	defer server.Close()

	ctx := context.Background()
	topic, err := service.CreateTopic(ctx, "Science", "🔬")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	q, err := service.CreateQuestion(ctx, domain.NewQuestion{TopicID: topic.ID, Points: 400, Question: "H2O?", Answer: "Water"})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	team, err := service.CreateTeam(ctx, "Blues")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws/scoreboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readScoreboard(t, conn)
	if len(first.Standings) != 1 || first.Standings[0].Score != 0 {
		t.Fatalf("expected Blues at 0 in first snapshot, got %+v", first.Standings)
	}

	if _, err := service.ResolveQuestion(ctx, &team.ID, q.ID, domain.OutcomeCorrect); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := readScoreboard(t, conn)
		if len(snap.Standings) == 1 && snap.Standings[0].Score == 400 {
			return
		}
	}
	t.Fatalf("did not receive updated standings")
}

func TestScoreboardFeedRejectsUnknownMessages(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	service := app.NewGameService(memory.NewStore())
	server := httptest.NewServer(NewRouter(NewHandler(service, log), nil, log))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws/scoreboard", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readScoreboard(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, payload := readNext(t, conn)
	if typ != "error" {
		t.Fatalf("expected error, got %s", typ)
	}
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected payload %v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "refresh"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readScoreboard(t, conn)
}

func readScoreboard(t *testing.T, conn *websocket.Conn) domain.Scoreboard {
	t.Helper()
	var msg outboundMessage[domain.Scoreboard]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "scoreboard" {
		t.Fatalf("expected scoreboard, got %s", msg.Type)
	}
	return msg.Payload
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
