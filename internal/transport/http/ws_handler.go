package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"exam-session-service/internal/attempt"
	"exam-session-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *attempt.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *attempt.Service) *WSHandler {
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
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type markPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wireOption and wireQuestion are the client-facing question shape: the
// correct label never crosses the boundary.
type wireOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type wireQuestion struct {
	ID      string       `json:"id"`
	Ordinal int          `json:"ordinal"`
	Prompt  string       `json:"prompt"`
	Options []wireOption `json:"options"`
	Subject string       `json:"subject"`
}

type startedPayload struct {
	SessionID string         `json:"sessionId"`
	TestID    string         `json:"testId"`
	Mode      string         `json:"mode"`
	Remaining int            `json:"remaining"`
	Questions []wireQuestion `json:"questions"`
}

// ServeWS upgrades HTTP requests to websockets and drives one attempt
// session over the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	testID := r.URL.Query().Get("testId")
	userID := r.URL.Query().Get("userId")
	if testID == "" || userID == "" {
		http.Error(w, "missing testId or userId", http.StatusBadRequest)
		return
	}
	mode := domain.AttemptMode(r.URL.Query().Get("mode"))
	if mode != domain.ModeLive {
		mode = domain.ModePractice
	}
	duration, _ := strconv.Atoi(r.URL.Query().Get("duration"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// A reconnect carries the session ID and reattaches to the running
	// attempt; the countdown keeps its single clock.
	var sess *attempt.Session
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		sess, err = h.service.Get(sessionID)
	} else {
		sess, err = h.service.Start(r.Context(), testID, userID, mode, duration)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := sess.Subscribe()
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

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: "view", Payload: view}
				if view.Result != nil {
					msg = outboundMessage[any]{Type: "result", Payload: *view.Result}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
				if view.Result != nil {
					// The client is navigated to results unconditionally;
					// nothing further will be broadcast.
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
		SessionID: sess.ID(),
		TestID:    sess.TestID(),
		Mode:      string(sess.Mode()),
		Remaining: sess.View().Remaining,
		Questions: wireQuestions(sess.Questions()),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(sess, inbound); err != nil {
			if errors.Is(err, domain.ErrSessionClosed) {
				// Late messages racing the terminal transition are expected; drop them.
				continue
			}
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(sess *attempt.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		return sess.SelectAnswer(payload.QuestionID, payload.Option)
	case "save":
		return sess.SaveAndAdvance()
	case "prev":
		return sess.GoToPrevious()
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid goto payload")
		}
		return sess.GoToQuestion(payload.Index)
	case "mark":
		var payload markPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid mark payload")
		}
		return sess.ToggleMark(payload.QuestionID)
	case "submit":
		_, err := sess.Submit()
		return err
	default:
		return errors.New("unsupported message type")
	}
}

func wireQuestions(questions []domain.Question) []wireQuestion {
	out := make([]wireQuestion, len(questions))
	for i, q := range questions {
		opts := make([]wireOption, len(q.Options))
		for j, opt := range q.Options {
			opts[j] = wireOption{Label: opt.Label, Text: opt.Text}
		}
		out[i] = wireQuestion{
			ID:      q.ID,
			Ordinal: q.Ordinal,
			Prompt:  q.Prompt,
			Options: opts,
			Subject: q.Subject,
		}
	}
	return out
}
