package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"onepercent-quiz-service/internal/app"
	"onepercent-quiz-service/internal/domain"
	"onepercent-quiz-service/internal/infra/memory"
)

type stubChecker struct {
	accept bool
}

func (s stubChecker) CheckEquivalence(ctx context.Context, userAnswer, correctAnswer, explanation string) bool {
	return s.accept
}

func newTestService(checker app.SemanticChecker) *app.QuizService {
	store := memory.NewSessionStore()
	loader := memory.NewStaticEpisodeLoader([]domain.Episode{sampleEpisode()})
	episodes := memory.NewEpisodeRepository(loader, time.Minute)
	return app.NewQuizService(store, episodes, app.NewEvaluator(checker), app.WithCatalog(loader))
}

func newWSServer(t *testing.T, service *app.QuizService, opts ...WSOption) *httptest.Server {
	t.Helper()
	wsHandler := NewWSHandler(service, opts...)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketPlaysEpisodeToCompletion(t *testing.T) {
	server := newWSServer(t, newTestService(nil), WithTickInterval(time.Hour))
	conn := dial(t, server, "country=uk&season=1&episode=1")

	state := readUntil(conn, t, "state")
	if state["phase"] != "in_progress" || state["total"] != float64(4) {
		t.Fatalf("unexpected opening state: %v", state)
	}

	// q1 correct is B, q2 correct is A, q3 correct is B; we pick B, A, C.
	picks := []int{1, 0, 2}
	for i, pick := range picks {
		send(t, conn, "select", map[string]any{"index": pick})
		selected := readUntil(conn, t, "state")
		if selected["selectedChoice"] != float64(pick) {
			t.Fatalf("question %d: expected selection %d, got %v", i, pick, selected["selectedChoice"])
		}
		send(t, conn, "submit", nil)
		reveal := readUntil(conn, t, "reveal")
		if reveal["questionId"] == "" {
			t.Fatalf("reveal missing question id: %v", reveal)
		}
		send(t, conn, "next", nil)
		readUntil(conn, t, "state")
	}

	// Free-text question, exact match after normalization.
	send(t, conn, "type", map[string]any{"text": "  SIX "})
	readUntil(conn, t, "state")
	send(t, conn, "submit", nil)
	reveal := readUntil(conn, t, "reveal")
	if reveal["correct"] != true || reveal["correctAnswer"] != "six" {
		t.Fatalf("expected text answer accepted, got %v", reveal)
	}
	send(t, conn, "next", nil)

	summary := readUntil(conn, t, "complete")
	if summary["score"] != float64(3) || summary["totalQuestions"] != float64(4) || summary["successRate"] != float64(75) {
		t.Fatalf("unexpected summary: %v", summary)
	}

	send(t, conn, "next", nil)
	errPayload := readUntil(conn, t, "error")
	if errPayload["message"] != domain.ErrSessionComplete.Error() {
		t.Fatalf("expected complete error, got %v", errPayload)
	}
}

func TestWebSocketRejectsInvalidCommands(t *testing.T) {
	server := newWSServer(t, newTestService(nil), WithTickInterval(time.Hour))
	conn := dial(t, server, "country=uk&season=1&episode=1")
	readUntil(conn, t, "state")

	send(t, conn, "submit", nil)
	if msg := readUntil(conn, t, "error"); msg["message"] != domain.ErrNothingToSubmit.Error() {
		t.Fatalf("expected nothing to submit, got %v", msg)
	}
	send(t, conn, "next", nil)
	if msg := readUntil(conn, t, "error"); msg["message"] != domain.ErrNotRevealed.Error() {
		t.Fatalf("expected not revealed, got %v", msg)
	}
	send(t, conn, "type", map[string]any{"text": "four"})
	if msg := readUntil(conn, t, "error"); msg["message"] != domain.ErrWrongAnswerMode.Error() {
		t.Fatalf("expected wrong mode, got %v", msg)
	}
	send(t, conn, "select", map[string]any{})
	readUntil(conn, t, "error")
	send(t, conn, "dance", nil)
	readUntil(conn, t, "error")
}

func TestWebSocketStartsAtQuestionNumberAndRestarts(t *testing.T) {
	server := newWSServer(t, newTestService(nil), WithTickInterval(time.Hour))
	conn := dial(t, server, "country=uk&season=1&episode=1&question=3")

	state := readUntil(conn, t, "state")
	if state["index"] != float64(2) {
		t.Fatalf("expected to open on third question, got %v", state["index"])
	}
	send(t, conn, "select", map[string]any{"index": 1})
	readUntil(conn, t, "state")
	send(t, conn, "submit", nil)
	readUntil(conn, t, "reveal")

	send(t, conn, "restart", nil)
	restarted := readUntil(conn, t, "state")
	if restarted["index"] != float64(2) || restarted["score"] != float64(0) || restarted["revealed"] != false {
		t.Fatalf("unexpected restart state: %v", restarted)
	}
}

func TestWebSocketTicksCountDown(t *testing.T) {
	server := newWSServer(t, newTestService(nil), WithTickInterval(10*time.Millisecond))
	conn := dial(t, server, "country=uk&season=1&episode=1")
	readUntil(conn, t, "state")

	tick := readUntil(conn, t, "tick")
	if tick["duration"] != float64(app.DefaultQuestionSeconds) {
		t.Fatalf("unexpected duration: %v", tick)
	}
	if remaining, _ := tick["remaining"].(float64); remaining >= float64(app.DefaultQuestionSeconds) {
		t.Fatalf("expected countdown to move, got %v", tick)
	}
}

func TestWebSocketUsesCheckerForTypedAnswers(t *testing.T) {
	server := newWSServer(t, newTestService(stubChecker{accept: true}), WithTickInterval(time.Hour))
	conn := dial(t, server, "country=uk&season=1&episode=1&question=4")
	readUntil(conn, t, "state")

	send(t, conn, "type", map[string]any{"text": "6"})
	readUntil(conn, t, "state")
	send(t, conn, "submit", nil)
	if reveal := readUntil(conn, t, "reveal"); reveal["correct"] != true {
		t.Fatalf("expected checker to accept, got %v", reveal)
	}
}

func TestWebSocketUnknownEpisode(t *testing.T) {
	server := newWSServer(t, newTestService(nil))
	conn := dial(t, server, "country=fr&season=9&episode=9")
	if msg := readUntil(conn, t, "error"); msg["message"] != domain.ErrEpisodeNotFound.Error() {
		t.Fatalf("expected episode not found, got %v", msg)
	}
}

func TestWebSocketRejectsBadQuery(t *testing.T) {
	server := newWSServer(t, newTestService(nil))
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?country=uk&season=zero&episode=1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", resp)
	}
}

func TestWebSocketClosesOnOversizedMessage(t *testing.T) {
	server := newWSServer(t, newTestService(nil), WithTickInterval(time.Hour))
	conn := dial(t, server, "country=uk&season=1&episode=1&question=4")
	readUntil(conn, t, "state")

	send(t, conn, "type", map[string]any{"text": strings.Repeat("six ", maxMessageBytes)})
	for i := 0; i < 50; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseMessageTooBig {
			t.Fatalf("expected message too big close, got %v", closeErr)
		}
		return
	}
	t.Fatalf("connection still open after oversized message")
}

type touchCountingStore struct {
	*memory.SessionStore
	touches atomic.Int32
}

func (s *touchCountingStore) Touch(sessionID string) {
	s.touches.Add(1)
	s.SessionStore.Touch(sessionID)
}

func TestWebSocketTouchesSessionOnProgress(t *testing.T) {
	store := &touchCountingStore{SessionStore: memory.NewSessionStore()}
	episodes := memory.NewEpisodeRepository(memory.NewStaticEpisodeLoader([]domain.Episode{sampleEpisode()}), time.Minute)
	server := newWSServer(t, app.NewQuizService(store, episodes, app.NewEvaluator(nil)), WithTickInterval(time.Hour))
	conn := dial(t, server, "country=uk&season=1&episode=1")
	readUntil(conn, t, "state")

	send(t, conn, "next", nil)
	readUntil(conn, t, "error")
	if n := store.touches.Load(); n != 0 {
		t.Fatalf("rejected command must not touch, got %d", n)
	}

	send(t, conn, "select", map[string]any{"index": 1})
	readUntil(conn, t, "state")
	send(t, conn, "submit", nil)
	readUntil(conn, t, "reveal")
	send(t, conn, "next", nil)
	readUntil(conn, t, "state")
	send(t, conn, "restart", nil)
	readUntil(conn, t, "state")

	deadline := time.Now().Add(2 * time.Second)
	for store.touches.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := store.touches.Load(); n != 3 {
		t.Fatalf("expected submit, next and restart to touch, got %d", n)
	}
}

// readUntil skips messages of other types (ticks, intermediate states) until want arrives.
func readUntil(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message within 50 reads", want)
	return nil
}

func sampleEpisode() domain.Episode {
	order := func(n int) *int { return &n }
	choice := func(id string, rank int, difficulty domain.Difficulty, correct int) domain.Question {
		answers := []domain.Answer{{ID: id + "a", Text: "A"}, {ID: id + "b", Text: "B"}, {ID: id + "c", Text: "C"}}
		answers[correct].Correct = true
		return domain.Question{
			ID:          id,
			Text:        "Question " + id,
			Difficulty:  difficulty,
			OrderInShow: order(rank),
			Active:      true,
			Answers:     answers,
		}
	}
	return domain.Episode{
		ID:  "ep-1",
		Key: domain.EpisodeKey{Country: "uk", Season: 1, Episode: 1},
		Questions: []domain.Question{
			choice("q2", 2, domain.DifficultyEighty, 0),
			choice("q1", 1, domain.DifficultyNinety, 1),
			choice("q3", 3, domain.DifficultySeventy, 1),
			{
				ID:          "q4",
				Text:        "Spell the number after five",
				Difficulty:  domain.DifficultyOne,
				Explanation: "Counting in English.",
				OrderInShow: order(4),
				Active:      true,
				Answers:     []domain.Answer{{ID: "q4a", Text: "six", Correct: true}},
			},
			{ID: "draft", Difficulty: domain.DifficultyFive, OrderInShow: order(5), Active: true},
		},
	}
}
