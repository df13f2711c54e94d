package voice

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatservice "github.com/zhouzirui/aquaguard/backend/internal/service/chat"
	speechsvc "github.com/zhouzirui/aquaguard/backend/internal/service/speech"
	"github.com/zhouzirui/aquaguard/backend/pkg/utils"
)

// SpeechService 抽象语音识别能力，便于测试与替换实现
type SpeechService interface {
	speechsvc.BufferTranscriber
	BreakerState() string
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc  SpeechService
	chatSvc    *chatservice.Service
	maxCapture time.Duration
	logger     *zap.Logger
}

// New 创建语音处理器。speechSvc 为 nil 时 WebSocket 端点返回 501。
func New(speechSvc SpeechService, chatSvc *chatservice.Service, maxCapture time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		speechSvc:  speechSvc,
		chatSvc:    chatSvc,
		maxCapture: maxCapture,
		logger:     logger,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice", func(voiceRouter chi.Router) {
		voiceRouter.Get("/health", h.handleHealth)

		if h.speechSvc != nil && h.chatSvc != nil {
			voiceRouter.Post("/transcribe", h.handleTranscribe)
			wsHandler := NewWebSocketHandler(h.speechSvc, h.chatSvc, h.maxCapture, h.logger)
			wsHandler.RegisterWebSocketRoutes(voiceRouter)
		} else {
			notAvailable := func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusNotImplemented, "voice input not available")
			}
			voiceRouter.Post("/transcribe", notAvailable)
			voiceRouter.Get("/ws/{sessionID}", notAvailable)
		}
	})
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":    "healthy",
		"service":   "voice",
		"available": false,
	}
	if h.speechSvc != nil {
		payload["available"] = h.speechSvc.Available()
		payload["breaker"] = h.speechSvc.BreakerState()
	}
	utils.RespondJSON(w, http.StatusOK, payload)
}

// handleTranscribe 上传音频文件，转写后作为一条用户消息提交
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if !h.speechSvc.Available() {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition unavailable")
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	resp, err := h.speechSvc.TranscribeBuffer(r.Context(), sessionID, audio, speechsvc.FormatFromFilename(header.Filename), r.FormValue("language"))
	if err != nil {
		h.logger.Warn("asr request failed", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}
	if strings.TrimSpace(resp.Text) == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, "no speech detected")
		return
	}

	reply, err := h.chatSvc.Submit(r.Context(), sessionID, resp.Text)
	if err != nil {
		h.logger.Error("submit transcript failed", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to process transcript")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"transcript": resp.Text,
		"reply":      reply,
	})
}
