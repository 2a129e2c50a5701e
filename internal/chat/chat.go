// Package chat serves the assessment conversation over a websocket.
package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/conversation"
)

// Transcriber turns a recorded voice answer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error)
}

// Frame types sent by the client.
const (
	frameStart   = "start"
	frameAnswer  = "answer"
	frameVoice   = "voice"
	frameAbandon = "abandon"
	frameStatus  = "status"
)

// request is the incoming websocket frame.
type request struct {
	Type        string `json:"type"`
	PlayerID    int64  `json:"player_id"`
	Language    string `json:"language,omitempty"`
	Content     string `json:"content,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// response is the outgoing websocket frame.
type response struct {
	Type        string                     `json:"type"`
	SessionID   string                     `json:"session_id,omitempty"`
	Content     string                     `json:"content"`
	ContentHTML string                     `json:"content_html,omitempty"`
	Phase       assessment.Phase           `json:"phase,omitempty"`
	Transcript  string                     `json:"transcript,omitempty"`
	Progress    *assessment.Progress       `json:"progress,omitempty"`
	Results     []assessment.SessionResult `json:"results,omitempty"`
}

// DefaultTranscribeTimeout applies when New is given no timeout.
const DefaultTranscribeTimeout = 30 * time.Second

// Chat bridges websocket clients to a conversation handler.
type Chat struct {
	handler           conversation.MessageHandler
	transcriber       Transcriber
	transcribeTimeout time.Duration
	markdown    goldmark.Markdown
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// New creates a Chat. A nil transcriber disables voice answers. Each
// transcription is bounded by transcribeTimeout.
func New(handler conversation.MessageHandler, transcriber Transcriber, transcribeTimeout time.Duration, logger *zap.Logger) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	if transcribeTimeout <= 0 {
		transcribeTimeout = DefaultTranscribeTimeout
	}
	return &Chat{
		handler:           handler,
		transcriber:       transcriber,
		transcribeTimeout: transcribeTimeout,
		// Raw HTML in generated text is escaped.
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (c *Chat) RegisterRoutes(r chi.Router) {
	r.Get("/ws/assessment", c.handleWebSocket)
}

func (c *Chat) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req request
		if err := json.Unmarshal(msg, &req); err != nil {
			c.sendError(conn, "invalid message format")
			continue
		}
		if req.PlayerID <= 0 {
			c.sendError(conn, "player_id is required")
			continue
		}

		c.send(conn, c.process(r.Context(), req))
	}
}

func (c *Chat) process(ctx context.Context, req request) response {
	in := conversation.IncomingMessage{PlayerID: req.PlayerID, Language: req.Language}
	var transcript string

	switch req.Type {
	case frameStart:
		in.Command = conversation.CommandStart
	case frameAbandon:
		in.Command = conversation.CommandAbandon
	case frameStatus:
		in.Command = conversation.CommandStatus
	case frameAnswer:
		if strings.TrimSpace(req.Content) == "" {
			return errorResponse("content is required")
		}
		in.Command = conversation.CommandAnswer
		in.Text = req.Content
	case frameVoice:
		text, resp, ok := c.transcribe(ctx, req)
		if !ok {
			return resp
		}
		in.Command = conversation.CommandAnswer
		in.Text = text
		transcript = text
	default:
		return errorResponse("unknown message type: " + req.Type)
	}

	out, err := c.handler.HandleMessage(ctx, in)
	if err != nil {
		c.logger.Error("handling message failed",
			zap.Int64("player_id", req.PlayerID), zap.String("type", req.Type), zap.Error(err))
		return errorResponse("processing failed")
	}

	return response{
		Type:        string(out.Type),
		SessionID:   out.SessionID,
		Content:     out.Content,
		ContentHTML: c.render(out.Content),
		Phase:       out.Phase,
		Transcript:  transcript,
		Progress:    out.Progress,
		Results:     out.Results,
	}
}

// transcribe decodes and transcribes a voice frame. When ok is false the
// returned response should be sent instead.
func (c *Chat) transcribe(ctx context.Context, req request) (string, response, bool) {
	if c.transcriber == nil {
		return "", errorResponse("voice answers are not enabled"), false
	}
	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil || len(audio) == 0 {
		return "", errorResponse("audio_base64 must be non-empty base64"), false
	}
	filename := req.Filename
	if filename == "" {
		filename = "answer.ogg"
	}

	tctx, cancel := context.WithTimeout(ctx, c.transcribeTimeout)
	text, err := c.transcriber.Transcribe(tctx, bytes.NewReader(audio), filename, req.Language)
	cancel()
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("transcription timed out",
			zap.Int64("player_id", req.PlayerID), zap.Duration("timeout", c.transcribeTimeout))
		return "", response{Type: string(conversation.ReplyRetry), Content: "Transcription took too long. Please record your answer again."}, false
	}
	if err != nil {
		c.logger.Warn("transcription failed", zap.Int64("player_id", req.PlayerID), zap.Error(err))
		return "", response{Type: string(conversation.ReplyRetry), Content: "We could not hear that. Please record your answer again."}, false
	}
	if strings.TrimSpace(text) == "" {
		return "", response{Type: string(conversation.ReplyRetry), Content: "The recording was empty. Please record your answer again."}, false
	}
	return text, response{}, true
}

func (c *Chat) render(content string) string {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(content), &buf); err != nil {
		c.logger.Warn("rendering markdown failed", zap.Error(err))
		return ""
	}
	return buf.String()
}

func errorResponse(message string) response {
	return response{Type: string(conversation.ReplyError), Content: message}
}

func (c *Chat) send(conn *websocket.Conn, resp response) {
	if err := conn.WriteJSON(resp); err != nil {
		c.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (c *Chat) sendError(conn *websocket.Conn, message string) {
	c.send(conn, errorResponse(message))
}
