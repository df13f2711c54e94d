package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/handler/chat"
	"github.com/zhouzirui/aquaguard/backend/internal/handler/knowledge"
	"github.com/zhouzirui/aquaguard/backend/internal/handler/stream"
	"github.com/zhouzirui/aquaguard/backend/internal/handler/voice"
	middlewarePkg "github.com/zhouzirui/aquaguard/backend/internal/middleware"
	knowledgeModel "github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
	chatService "github.com/zhouzirui/aquaguard/backend/internal/service/chat"
	"github.com/zhouzirui/aquaguard/backend/pkg/utils"
)

// Dependencies 路由所需的服务集合。Speech 为 nil 表示语音输入不可用。
type Dependencies struct {
	Knowledge  knowledgeModel.Store
	Chat       *chatService.Service
	Speech     voice.SpeechService
	MaxCapture time.Duration
	Metrics    prometheus.Gatherer
	Logger     *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		knowledge.New(deps.Knowledge).RegisterRoutes(api)

		api.Route("/chat", func(chatRouter chi.Router) {
			chat.New(deps.Chat, logger).RegisterRoutes(chatRouter)
		})

		stream.New(deps.Chat, logger).RegisterRoutes(api)

		voice.New(deps.Speech, deps.Chat, deps.MaxCapture, logger).RegisterRoutes(api)
	})

	return r
}
