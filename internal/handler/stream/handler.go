package stream

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/aquaguard/backend/internal/service/chat"
	"github.com/zhouzirui/aquaguard/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler streams a conversation transcript via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:   chatSvc,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// ResyncMessage is the final status event of a stream that fell behind the
// transcript. Clients reconnect to replay the history.
const ResyncMessage = "transcript stream lagged, reconnect to resync"

// StatusEvent is the first event of every stream.
type StatusEvent struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// handleStream replays the existing transcript then forwards live appends.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 先订阅再读历史，避免两者之间追加的消息丢失
	updates, err := h.chatSvc.Subscribe(ctx, sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	history, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	h.logger.Debug("sse stream opened", zap.String("session_id", sessionID))
	defer h.logger.Debug("sse stream closed", zap.String("session_id", sessionID))

	if err := utils.SendSSEEvent(w, flusher, "status", StatusEvent{SessionID: sessionID, Message: "stream established"}); err != nil {
		return
	}

	seen := make(map[string]struct{}, len(history))
	for _, msg := range history {
		seen[msg.ID] = struct{}{}
		if err := utils.SendSSEEvent(w, flusher, "message", msg); err != nil {
			h.logger.Debug("sse write failed", zap.Error(err))
			return
		}
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				if ctx.Err() == nil {
					// 订阅者落后被关闭，提示客户端重连以重放历史
					h.logger.Warn("sse subscriber lagged", zap.String("session_id", sessionID))
					_ = utils.SendSSEEvent(w, flusher, "status", StatusEvent{SessionID: sessionID, Message: ResyncMessage})
				}
				return
			}
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			if err := utils.SendSSEEvent(w, flusher, "message", msg); err != nil {
				h.logger.Debug("sse write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
