package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"onepercent-quiz-service/internal/app"
	"onepercent-quiz-service/internal/domain"
)

const (
	defaultTickInterval = time.Second
	// maxMessageBytes caps a single inbound frame; larger ones close the connection.
	maxMessageBytes = 4 << 10
)

type WSHandler struct {
	service      *app.QuizService
	upgrader     websocket.Upgrader
	tickInterval time.Duration
}

// WSOption customizes a WSHandler.
type WSOption func(*WSHandler)

// WithTickInterval sets how often the countdown advances by one second.
func WithTickInterval(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.tickInterval = d
		}
	}
}

func NewWSHandler(service *app.QuizService, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tickInterval: defaultTickInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index *int `json:"index"`
}

type typePayload struct {
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

func stateMessage(session *app.Session) outboundMessage[any] {
	return outboundMessage[any]{Type: string(app.EventState), Payload: session.Snapshot()}
}

// ServeWS upgrades HTTP requests to websockets and runs one play session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	key, questionNumber, err := parseEpisodeQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	session, err := h.service.Start(r.Context(), key, questionNumber)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	logger := log.With().Str("session", session.ID()).Str("episode", key.String()).Logger()
	logger.Info().Msg("session started")

	events, unsubscribe := session.Subscribe()
	gradeCtx, cancelGrading := context.WithCancel(context.Background())

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	tickerDone := make(chan struct{})
	var grading sync.WaitGroup

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				emit(outboundMessage[any]{Type: string(event.Type), Payload: event.Payload})
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				session.Tick()
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
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Index == nil {
				emit(errorMessage(errors.New("invalid select payload")))
				continue
			}
			if err := session.SelectChoice(*payload.Index); err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(stateMessage(session))
		case "type":
			var payload typePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(errorMessage(errors.New("invalid type payload")))
				continue
			}
			if err := session.TypeAnswer(payload.Text); err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(stateMessage(session))
		case "submit":
			// Grading may call out to a model; keep reading meanwhile.
			grading.Add(1)
			go func() {
				defer grading.Done()
				_, err := session.Submit(gradeCtx)
				switch {
				case err == nil:
					h.service.Touch(session.ID())
				case errors.Is(err, domain.ErrSubmissionDiscarded), errors.Is(err, domain.ErrSessionClosed):
					logger.Debug().Err(err).Msg("submission dropped")
				default:
					emit(errorMessage(err))
				}
			}()
		case "next":
			if err := session.Advance(); err != nil {
				emit(errorMessage(err))
				continue
			}
			h.service.Touch(session.ID())
		case "restart":
			if err := session.Restart(); err != nil {
				emit(errorMessage(err))
				continue
			}
			h.service.Touch(session.ID())
		default:
			emit(errorMessage(errors.New("unsupported message type")))
		}
	}

	close(closeSignals)
	cancelGrading()
	h.service.End(session.ID())
	unsubscribe()
	grading.Wait()
	<-eventsDone
	<-tickerDone
	close(send)
	<-writerDone
	logger.Info().Msg("session ended")
}

func parseEpisodeQuery(q url.Values) (domain.EpisodeKey, int, error) {
	country := strings.ToLower(strings.TrimSpace(q.Get("country")))
	if country == "" {
		return domain.EpisodeKey{}, 0, errors.New("missing country")
	}
	season, err := positiveInt(q.Get("season"), "season")
	if err != nil {
		return domain.EpisodeKey{}, 0, err
	}
	episode, err := positiveInt(q.Get("episode"), "episode")
	if err != nil {
		return domain.EpisodeKey{}, 0, err
	}
	question := 0
	if raw := q.Get("question"); raw != "" {
		if question, err = positiveInt(raw, "question"); err != nil {
			return domain.EpisodeKey{}, 0, err
		}
	}
	return domain.EpisodeKey{Country: country, Season: season, Episode: episode}, question, nil
}

func positiveInt(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
