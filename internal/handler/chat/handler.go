package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/aquaguard/backend/internal/service/chat"
	"github.com/zhouzirui/aquaguard/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/messages", h.handleSubmitMessage)
	r.Get("/{sessionID}/transcript", h.handleTranscript)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleSubmitMessage 提交用户消息并返回助手回复
func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	reply, err := h.chatSvc.Submit(r.Context(), payload.SessionID, payload.Text)
	if err != nil {
		switch {
		case errors.Is(err, chatService.ErrEmptyInput):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chatService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("submit message failed", zap.String("session_id", payload.SessionID), zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

// handleTranscript 按顺序返回会话记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}
