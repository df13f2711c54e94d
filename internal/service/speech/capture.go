package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/model/speech"
	"github.com/zhouzirui/aquaguard/backend/internal/service/voice"
)

var (
	// ErrCaptureInactive 在未开始录音时推送音频。
	ErrCaptureInactive = errors.New("capture is not active")
	// ErrCaptureTimeout 录音超过最大时长。
	ErrCaptureTimeout = errors.New("capture exceeded maximum duration")
	// ErrNoAudio 结束录音时没有收到任何音频。
	ErrNoAudio = errors.New("no audio captured")
)

const defaultMaxCaptureDuration = 30 * time.Second

// BufferTranscriber 是 StreamCapture 依赖的转写能力，*Service 实现了它。
type BufferTranscriber interface {
	Available() bool
	TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speech.ASRResponse, error)
}

// StreamCapture 接收 WebSocket 推送的音频分片，在最后一片到达时做一次转写。
// 每次 Start 最多投递一个结果；Stop 丢弃缓冲并取消进行中的转写。
type StreamCapture struct {
	recognizer  BufferTranscriber
	sessionID   string
	maxDuration time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	gen       uint64
	active    bool
	finishing bool
	delivered bool
	buf       []byte
	format    string
	language  string
	deliver   func(voice.Result)
	ctx       context.Context
	cancel    context.CancelFunc
	timer     *time.Timer
}

var _ voice.Capture = (*StreamCapture)(nil)

// NewStreamCapture 创建音频流采集器，maxDuration<=0 时使用默认值。
func NewStreamCapture(recognizer BufferTranscriber, sessionID string, maxDuration time.Duration, logger *zap.Logger) *StreamCapture {
	if maxDuration <= 0 {
		maxDuration = defaultMaxCaptureDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamCapture{
		recognizer:  recognizer,
		sessionID:   sessionID,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

// Available implements voice.Capture.
func (c *StreamCapture) Available() bool {
	return c.recognizer != nil && c.recognizer.Available()
}

// Start implements voice.Capture.
func (c *StreamCapture) Start(ctx context.Context, deliver func(voice.Result)) error {
	if deliver == nil {
		return fmt.Errorf("deliver callback is required")
	}
	if !c.Available() {
		return ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return fmt.Errorf("capture already active")
	}

	c.gen++
	gen := c.gen
	captureCtx, cancel := context.WithCancel(ctx)

	c.active = true
	c.finishing = false
	c.delivered = false
	c.buf = c.buf[:0]
	c.format = ""
	c.language = ""
	c.deliver = deliver
	c.ctx = captureCtx
	c.cancel = cancel
	c.timer = time.AfterFunc(c.maxDuration, func() {
		c.emit(gen, voice.Result{Err: ErrCaptureTimeout})
	})

	c.logger.Debug("capture started", zap.String("session_id", c.sessionID))
	return nil
}

// Feed 追加一个音频分片；final 为 true 时触发转写。
func (c *StreamCapture) Feed(chunk []byte, format, language string, final bool) error {
	c.mu.Lock()
	if !c.active || c.finishing {
		c.mu.Unlock()
		return ErrCaptureInactive
	}

	c.buf = append(c.buf, chunk...)
	if format != "" {
		c.format = format
	}
	if language != "" {
		c.language = language
	}
	if !final {
		c.mu.Unlock()
		return nil
	}

	c.finishing = true
	if c.timer != nil {
		c.timer.Stop()
	}
	gen := c.gen
	audio := append([]byte(nil), c.buf...)
	format, language = c.format, c.language
	ctx := c.ctx
	c.mu.Unlock()

	if len(audio) == 0 {
		c.emit(gen, voice.Result{Err: ErrNoAudio})
		return nil
	}

	go c.transcribe(ctx, gen, audio, format, language)
	return nil
}

func (c *StreamCapture) transcribe(ctx context.Context, gen uint64, audio []byte, format, language string) {
	resp, err := c.recognizer.TranscribeBuffer(ctx, c.sessionID, audio, format, language)
	if err != nil {
		c.logger.Warn("transcription failed", zap.String("session_id", c.sessionID), zap.Error(err))
		c.emit(gen, voice.Result{Err: err})
		return
	}
	c.emit(gen, voice.Result{Transcript: resp.Text})
}

// Stop implements voice.Capture.
func (c *StreamCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *StreamCapture) reset() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.active = false
	c.finishing = false
	c.buf = c.buf[:0]
	c.deliver = nil
	c.ctx = nil
}

// emit 投递结果，过期或重复的结果被丢弃。
func (c *StreamCapture) emit(gen uint64, result voice.Result) {
	c.mu.Lock()
	if gen != c.gen || c.delivered || c.deliver == nil {
		c.mu.Unlock()
		return
	}
	c.delivered = true
	if c.timer != nil {
		c.timer.Stop()
	}
	deliver := c.deliver
	c.mu.Unlock()

	deliver(result)
}
