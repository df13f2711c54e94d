package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/model/speech"
)

// ErrNotConfigured 表示未配置语音凭证。
var ErrNotConfigured = errors.New("speech service is not configured")

// Transcriber 将一段完整音频转写为文本。
type Transcriber interface {
	Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
}

// Service 语音服务：ASR 客户端外包一层熔断器
type Service struct {
	config     *speech.SpeechConfig
	client     Transcriber
	configured bool
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewService 创建语音服务实例
func NewService(config *speech.SpeechConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := NewVolcengineASRClient(config, logger)
	return newService(config, client, client.Configured(), logger)
}

// NewServiceWithTranscriber 使用自定义转写实现，主要用于测试。
func NewServiceWithTranscriber(config *speech.SpeechConfig, client Transcriber, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newService(config, client, client != nil, logger)
}

func newService(config *speech.SpeechConfig, client Transcriber, configured bool, logger *zap.Logger) *Service {
	if config == nil {
		config = &speech.SpeechConfig{}
	}
	failures := config.BreakerFailures
	if failures == 0 {
		failures = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "speech-asr",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: isUpstreamHealthy,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Service{
		config:     config,
		client:     client,
		configured: configured,
		breaker:    breaker,
		logger:     logger,
	}
}

// isUpstreamHealthy 调用方主动取消不算上游故障；超时仍计为失败。
func isUpstreamHealthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// Available 凭证齐全且熔断器未打开时才可用。
func (s *Service) Available() bool {
	if s == nil || !s.configured {
		return false
	}
	return s.breaker.State() != gobreaker.StateOpen
}

// BreakerState 返回熔断器当前状态，供健康检查使用。
func (s *Service) BreakerState() string {
	if s == nil {
		return gobreaker.StateOpen.String()
	}
	return s.breaker.State().String()
}

// Transcribe 语音转文字
func (s *Service) Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if s == nil || !s.configured {
		return nil, ErrNotConfigured
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.Timeout)*time.Second)
		defer cancel()
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Transcribe(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("speech recognition temporarily unavailable: %w", err)
		}
		return nil, err
	}
	return result.(*speech.ASRResponse), nil
}

// TranscribeBuffer 语音转文字（使用字节数组）
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speech.ASRResponse, error) {
	if language == "" {
		language = s.config.ASRLanguage
	}
	return s.Transcribe(ctx, &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(audioData),
		Format:    format,
		Language:  language,
	})
}
