package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// fallbackBody 序列化失败时使用的固定响应体
var fallbackBody = []byte(`{"error":"internal server error"}` + "\n")

// RespondJSON 发送JSON响应。payload 无法序列化时改为 500。
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("failed to encode response",
			zap.Int("status", status),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		body = fallbackBody
	} else {
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		zap.L().Debug("failed to write response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}
