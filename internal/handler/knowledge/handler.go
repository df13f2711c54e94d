package knowledge

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
	"github.com/zhouzirui/aquaguard/backend/pkg/utils"
)

// Handler 知识库的HTTP处理器
type Handler struct {
	entries knowledge.Store
}

// New 创建知识库处理器
func New(entries knowledge.Store) *Handler {
	return &Handler{entries: entries}
}

// RegisterRoutes 注册知识库相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/knowledge", h.handleList)
	r.Get("/knowledge/{entryID}", h.handleGet)
}

// handleList 按定义顺序列出全部条目
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.entries.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entries.FindByID(chi.URLParam(r, "entryID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "knowledge entry not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, entry)
}
