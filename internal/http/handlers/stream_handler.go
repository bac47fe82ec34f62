// Streaming guide endpoints.
//
//   - POST /guide/chat/stream  Server-Sent Events: "delta" per fragment, then
//     "done" or "error".
//   - GET  /guide/chat/ws      WebSocket: the client sends one ChatRequest,
//     the server answers with StreamEvent text frames and closes.
//
// A client that goes away mid-reply does not cancel the turn: the orchestrator
// still persists the full reply, the sink simply stops writing.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/http/middleware"
	"github.com/tbourn/go-guide-backend/internal/services"
)

// Stream event types shared by SSE event names and WebSocket frames.
const (
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

const (
	wsReadLimit    = 64 << 10
	wsReadTimeout  = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// errStreamWrite reports that the response writer rejected an event.
var errStreamWrite = errors.New("stream write failed")

// StreamEvent is one streamed frame. Delta frames carry Text; the done frame
// carries the persisted message id and mode; error frames Code and Message.
type StreamEvent struct {
	Type      string      `json:"type" example:"delta"`
	Text      string      `json:"text,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
	Mode      domain.Mode `json:"mode,omitempty"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func errorEvent(err error) StreamEvent {
	_, code, msg := classify(err)
	return StreamEvent{Type: EventError, Code: code, Message: msg}
}

func doneEvent(r *services.Reply) StreamEvent {
	ev := StreamEvent{Type: EventDone, Mode: r.Mode}
	if r.Message != nil {
		ev.MessageID = r.Message.ID
	}
	return ev
}

//
// SSE
//

// sseSink writes fragments as "delta" events on the Gin response.
type sseSink struct {
	c       *gin.Context
	started bool
}

func (s *sseSink) begin() {
	if s.started {
		return
	}
	s.started = true
	h := s.c.Writer.Header()
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.c.Status(http.StatusOK)
}

func (s *sseSink) send(ev StreamEvent) error {
	s.begin()
	s.c.SSEvent(ev.Type, ev)
	if s.c.IsAborted() {
		return errStreamWrite
	}
	s.c.Writer.Flush()
	return nil
}

func (s *sseSink) Write(ctx context.Context, fragment string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(StreamEvent{Type: EventDelta, Text: fragment})
}

func (s *sseSink) Close() error { return nil }

// ChatStream godoc
// @ID          guideChatStream
// @Summary     Ask the guide (Server-Sent Events)
// @Description Same turn as POST /guide/chat, delivered as "delta" events followed by a "done" event.
// @Description Failures before the first event are JSON errors; later failures arrive as an "error" event.
// @Tags        Guide
// @Accept      json
// @Produce     text/event-stream
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Param       body       body    handlers.ChatRequest  true  "Conversation turn"
// @Success     200  {object}  handlers.StreamEvent
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Project not found"
// @Failure     502  {object}  handlers.ErrorResponse "Generation failed"
// @Router      /guide/chat/stream [post]
func (h *Handlers) ChatStream(c *gin.Context) {
	req, ok := bindChat(c)
	if !ok {
		return
	}
	sink := &sseSink{c: c}
	reply, err := h.guide.ConverseStream(c.Request.Context(), middleware.UserID(c), req.ProjectID, req.Message, sink)
	if err != nil {
		if !sink.started {
			writeError(c, err)
			return
		}
		_ = c.Error(err)
		_ = sink.send(errorEvent(err))
		return
	}
	if c.Request.Context().Err() != nil || c.IsAborted() {
		return
	}
	_ = sink.send(doneEvent(reply))
}

//
// WebSocket
//

// wsSink writes fragments as "delta" text frames.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Write(ctx context.Context, fragment string) error {
	return writeFrame(ctx, s.conn, StreamEvent{Type: EventDelta, Text: fragment})
}

func (s *wsSink) Close() error { return nil }

func writeFrame(ctx context.Context, conn *websocket.Conn, ev StreamEvent) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

// closeStatus maps an error class to a WebSocket close code.
func closeStatus(err error) websocket.StatusCode {
	status, _, _ := classify(err)
	if status < http.StatusInternalServerError {
		return websocket.StatusPolicyViolation
	}
	return websocket.StatusInternalError
}

// ChatWS godoc
// @ID          guideChatWS
// @Summary     Ask the guide (WebSocket)
// @Description Upgrades to a WebSocket. The client sends one ChatRequest as JSON; the server sends StreamEvent frames ("delta"..., then "done" or "error") and closes.
// @Tags        Guide
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Success     101  {string}  string  "Switching Protocols"
// @Router      /guide/chat/ws [get]
func (h *Handlers) ChatWS(c *gin.Context) {
	lg := middleware.LoggerFrom(c)
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.WSOriginPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		lg.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(wsReadLimit)

	ctx := c.Request.Context()
	readCtx, cancel := context.WithTimeout(ctx, wsReadTimeout)
	var req ChatRequest
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		lg.Info().Err(err).Msg("websocket request unreadable")
		conn.Close(websocket.StatusUnsupportedData, ErrCodeBadRequest)
		return
	}
	req.Message = sanitizeContent(req.Message)
	req.ProjectID = optionalProjectID(req.ProjectID)

	reply, err := h.guide.ConverseStream(ctx, middleware.UserID(c), req.ProjectID, req.Message, &wsSink{conn: conn})
	if err != nil {
		ev := errorEvent(err)
		if status, _, _ := classify(err); status >= http.StatusInternalServerError {
			lg.Error().Err(err).Msg("websocket turn failed")
		}
		_ = writeFrame(ctx, conn, ev)
		conn.Close(closeStatus(err), ev.Code)
		return
	}
	if err := writeFrame(ctx, conn, doneEvent(reply)); err != nil {
		lg.Info().Err(err).Msg("websocket client gone before done")
		return
	}
	conn.Close(websocket.StatusNormalClosure, EventDone)
}
