package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/nebc/quizhub-backend/internal/middleware"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/service"
	ws "github.com/nebc/quizhub-backend/internal/websocket"
)

// wsReadTimeout bounds idle reads; clients keep the stream alive with pings.
const wsReadTimeout = 5 * time.Minute

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the attempt lifecycle over one WebSocket: low-latency
// answer capture, the submit state machine, and countdown state refreshes.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/exams/:examId/stream
// Upgrades to WebSocket for real-time answer capture and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID

	// The stream only serves an attempt that exists and is not submitted.
	state, err := h.attemptService.State(c.Request.Context(), examID, userID)
	if err != nil {
		ws.WriteError(conn, "no attempt for this exam")
		return
	}
	if state.Status == model.AttemptStatusSubmitted {
		ws.WriteError(conn, "attempt already submitted")
		return
	}

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Taker connected")

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, examID, userID, raw)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, examID, userID, raw)
		case ws.ActionConfirm:
			h.handleConfirm(conn, examID, userID)
		case ws.ActionCancel:
			h.handleCancel(conn, examID, userID)
		case ws.ActionState:
			h.handleState(conn, examID, userID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, examID, userID uuid.UUID, raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed autosave")
		return
	}
	if msg.QID == "" || len(msg.Answer) == 0 {
		ws.WriteError(conn, "q_id and ans are required")
		return
	}
	// QID must be a well-formed UUID to prevent Redis key injection.
	if _, err := uuid.Parse(msg.QID); err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	req := &model.SaveAnswerRequest{
		QuestionID: msg.QID,
		Answer:     msg.Answer,
		Interacted: msg.Interacted,
	}
	if err := h.attemptService.SaveAnswer(context.Background(), examID, userID, req); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved", QID: msg.QID})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, examID, userID uuid.UUID, raw []byte) {
	var msg ws.SubmitRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed submit")
		return
	}

	outcome, err := h.attemptService.Submit(context.Background(), examID, userID,
		&model.SubmitRequest{Confirmed: msg.Confirmed})
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	if outcome.Status == model.AttemptStatusPendingConfirm {
		confirmBy := ""
		if outcome.ConfirmBy != nil {
			confirmBy = outcome.ConfirmBy.Format(time.RFC3339)
		}
		ws.WriteTyped(conn, ws.PendingConfirmResponse{
			Event:      ws.EventPendingConfirm,
			Unanswered: outcome.Unanswered,
			ConfirmBy:  confirmBy,
		})
		return
	}

	wsLog.Info().Msg("Attempt submitted over WebSocket")
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Status: string(outcome.Status)})
}

func (h *WSHandler) handleConfirm(conn *websocket.Conn, examID, userID uuid.UUID) {
	outcome, err := h.attemptService.Confirm(context.Background(), examID, userID)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Status: string(outcome.Status)})
}

func (h *WSHandler) handleCancel(conn *websocket.Conn, examID, userID uuid.UUID) {
	if err := h.attemptService.Cancel(context.Background(), examID, userID); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSuccess, Status: string(model.AttemptStatusInProgress)})
}

func (h *WSHandler) handleState(conn *websocket.Conn, examID, userID uuid.UUID) {
	state, err := h.attemptService.State(context.Background(), examID, userID)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	answers, err := json.Marshal(state.Answers)
	if err != nil {
		ws.WriteError(conn, "state encoding failed")
		return
	}
	ws.WriteTyped(conn, ws.StateResponse{
		Event:            ws.EventState,
		Status:           string(state.Status),
		RemainingSeconds: state.RemainingSeconds,
		Answers:          answers,
	})
}
