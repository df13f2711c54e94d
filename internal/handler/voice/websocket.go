package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatmodel "github.com/zhouzirui/aquaguard/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/aquaguard/backend/internal/service/chat"
	speechsvc "github.com/zhouzirui/aquaguard/backend/internal/service/speech"
	"github.com/zhouzirui/aquaguard/backend/internal/service/voice"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

const transcriptResyncMessage = "transcript stream lagged, reconnect to resync"

// WebSocketHandler WebSocket语音处理器
type WebSocketHandler struct {
	speechSvc  speechsvc.BufferTranscriber
	chatSvc    *chatservice.Service
	maxCapture time.Duration
	logger     *zap.Logger
	upgrader   websocket.Upgrader

	mu     sync.Mutex
	active map[string]struct{}
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(speechSvc speechsvc.BufferTranscriber, chatSvc *chatservice.Service, maxCapture time.Duration, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		speechSvc:  speechSvc,
		chatSvc:    chatSvc,
		maxCapture: maxCapture,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		active: make(map[string]struct{}),
	}
}

// claim 每个会话同一时刻只允许一个语音连接
func (h *WebSocketHandler) claim(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.active[sessionID]; ok {
		return false
	}
	h.active[sessionID] = struct{}{}
	return true
}

func (h *WebSocketHandler) unclaim(sessionID string) {
	h.mu.Lock()
	delete(h.active, sessionID)
	h.mu.Unlock()
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage 音频消息，audioData 为 base64 编码
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	Language  string `json:"language"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// StatePayload 语音会话状态
type StatePayload struct {
	State     voice.State `json:"state"`
	Available bool        `json:"available"`
}

// NoticePayload 用户可见提示
type NoticePayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    voice.Severity `json:"severity"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// client 串行化对同一连接的写操作，gorilla 连接不支持并发写。
type client struct {
	conn      *websocket.Conn
	sessionID string
	logger    *zap.Logger
	mu        sync.Mutex
}

func (c *client) send(msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug("websocket write failed", zap.String("type", msgType), zap.Error(err))
	}
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *client) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, transcriptResyncMessage),
		time.Now().Add(writeTimeout))
	_ = c.conn.Close()
}

// handleWebSocket 处理WebSocket连接，每个会话至多一个连接及其语音控制器
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if !h.claim(sessionID) {
		http.Error(w, "voice session already connected", http.StatusConflict)
		return
	}
	defer h.unclaim(sessionID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session_id", sessionID))
	logger.Info("websocket connected")
	defer logger.Info("websocket disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := &client{conn: conn, sessionID: sessionID, logger: logger}
	capture := speechsvc.NewStreamCapture(h.speechSvc, sessionID, h.maxCapture, logger)
	controller := voice.NewController(
		capture,
		h.chatSvc.Conversation(sessionID),
		voice.NotifierFunc(func(title, description string, severity voice.Severity) {
			cl.send("notice", NoticePayload{Title: title, Description: description, Severity: severity})
		}),
		voice.WithLogger(logger),
		voice.WithStateListener(func(state voice.State) {
			cl.send("state", StatePayload{State: state, Available: capture.Available()})
		}),
	)
	defer controller.Close()

	updates, err := h.chatSvc.Subscribe(ctx, sessionID)
	if err != nil {
		cl.sendError(err.Error())
		return
	}
	go h.forwardTranscript(ctx, cl, updates)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, cl)

	cl.send("state", StatePayload{State: controller.State(), Available: capture.Available()})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			cl.sendError("session mismatch")
			continue
		}

		h.handleMessage(ctx, cl, controller, capture, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, cl *client, controller *voice.Controller, capture *speechsvc.StreamCapture, msg *inboundMessage) {
	switch msg.Type {
	case "start":
		// 不可用或启动失败时控制器已发出 notice
		if err := controller.Start(ctx); errors.Is(err, voice.ErrCaptureBusy) {
			cl.sendError(err.Error())
		}
	case "cancel":
		if err := controller.Cancel(); err != nil {
			cl.sendError(err.Error())
		}
	case "audio":
		h.handleAudioMessage(cl, capture, msg.Data)
	case "text":
		h.handleTextMessage(ctx, cl, msg.Data)
	default:
		cl.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) handleAudioMessage(cl *client, capture *speechsvc.StreamCapture, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		cl.sendError("invalid audio payload")
		return
	}

	if err := capture.Feed(audio.AudioData, audio.Format, audio.Language, audio.IsFinal); err != nil {
		if errors.Is(err, speechsvc.ErrCaptureInactive) {
			cl.sendError(voice.ErrNotListening.Error())
			return
		}
		cl.sendError(err.Error())
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, cl *client, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		cl.sendError("invalid text payload")
		return
	}

	// 回复通过订阅推送
	if _, err := h.chatSvc.Submit(ctx, cl.sessionID, text.Text); err != nil {
		if errors.Is(err, chatservice.ErrEmptyInput) {
			cl.sendError(err.Error())
			return
		}
		cl.logger.Error("text submission failed", zap.Error(err))
		cl.sendError("failed to process message")
	}
}

// forwardTranscript 将新追加的会话消息推送给客户端。订阅因落后被关闭时
// 通知客户端并断开连接，由客户端重连补齐。
func (h *WebSocketHandler) forwardTranscript(ctx context.Context, cl *client, updates <-chan chatmodel.Message) {
	for msg := range updates {
		cl.send("message", msg)
	}
	if ctx.Err() != nil {
		return
	}
	cl.logger.Warn("transcript subscriber lagged, closing websocket")
	cl.sendError(transcriptResyncMessage)
	cl.close()
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		}
	}
}
