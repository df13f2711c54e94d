package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/model/speech"
)

const (
	defaultASRURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	// 16kHz, 16bit, mono, 200ms
	audioChunkSize = 6400
	// 服务端 FullClientRequest 占用序号1，音频从2开始
	firstAudioSequence = 2
	asrSuccessCode     = 20000000
)

var errNoAudio = errors.New("no audio data to send")

// VolcengineASRClient 火山引擎流式ASR WebSocket客户端
type VolcengineASRClient struct {
	config      *speech.SpeechConfig
	dialer      *websocket.Dialer
	url         string
	chunkPacing time.Duration
	logger      *zap.Logger
}

type asrRequestPayload struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrServerPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string `json:"text"`
		Utterances []struct {
			Text string `json:"text"`
		} `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// NewVolcengineASRClient 创建火山引擎ASR客户端
func NewVolcengineASRClient(config *speech.SpeechConfig, logger *zap.Logger) *VolcengineASRClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := defaultASRURL
	if config != nil && strings.TrimSpace(config.BaseURL) != "" {
		url = strings.TrimSpace(config.BaseURL)
	}
	return &VolcengineASRClient{
		config:      config,
		dialer:      &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		url:         url,
		chunkPacing: 200 * time.Millisecond,
		logger:      logger,
	}
}

// Configured 表示凭证齐全，可以发起识别。
func (c *VolcengineASRClient) Configured() bool {
	_, _, err := resolveCredentials(c.config)
	return err == nil
}

// Transcribe 建立一次WebSocket会话，发送全部音频并等待最终结果。
func (c *VolcengineASRClient) Transcribe(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	audio, err := io.ReadAll(req.AudioData)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errNoAudio
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	resourceID := "volc.bigasr.sauc.duration"
	if c.config.ConcurrentMode {
		resourceID = "volc.bigasr.sauc.concurrent"
	}
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", req.SessionID)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()

	if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
		c.logger.Debug("asr connected", zap.String("logid", logid), zap.String("session_id", req.SessionID))
	}

	if err := c.sendRequest(conn, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 并发收发：服务端提前返回错误时可以及时停止发送
	type recvResult struct {
		resp *speech.ASRResponse
		err  error
	}
	recvCh := make(chan recvResult, 1)
	go func() {
		r, err := c.receive(conn, req.SessionID)
		recvCh <- recvResult{resp: r, err: err}
	}()

	sendCh := make(chan error, 1)
	go func() {
		sendCh <- c.sendAudio(ctx, conn, audio)
	}()

	for {
		select {
		case err := <-sendCh:
			if err != nil {
				return nil, fmt.Errorf("failed to send audio data: %w", err)
			}
			sendCh = nil
		case r := <-recvCh:
			return r.resp, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *VolcengineASRClient) sendRequest(conn *websocket.Conn, req *speech.ASRRequest) error {
	payload := asrRequestPayload{}
	payload.User.UID = req.SessionID
	payload.Audio.Format = firstNonEmpty(req.Format, "wav")
	payload.Audio.Language = firstNonEmpty(req.Language, c.config.ASRLanguage, "en-US")
	payload.Audio.Codec = "raw"
	payload.Audio.Rate = 16000
	payload.Audio.Bits = 16
	payload.Audio.Channel = 1
	payload.Request.ModelName = "bigmodel"
	payload.Request.EnableITN = true
	payload.Request.EnablePunc = true
	payload.Request.ShowUtterances = true
	payload.Request.ResultType = "full"
	payload.Request.EndWindowSize = 800

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	compressed, err := gzipBytes(data)
	if err != nil {
		return fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, newFullClientFrame(compressed).encode()); err != nil {
		return fmt.Errorf("failed to send ASR request: %w", err)
	}
	return nil
}

func (c *VolcengineASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	sequence := int32(firstAudioSequence)
	for offset := 0; offset < len(audio); offset += audioChunkSize {
		end := min(offset+audioChunkSize, len(audio))
		last := end >= len(audio)

		compressed, err := gzipBytes(audio[offset:end])
		if err != nil {
			return fmt.Errorf("failed to compress audio chunk: %w", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, newAudioFrame(compressed, sequence, last).encode()); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		sequence++
		if last {
			return nil
		}

		// 控制发送速率，模拟实时音频流
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.chunkPacing):
		}
	}
	return nil
}

func (c *VolcengineASRClient) receive(conn *websocket.Conn, sessionID string) (*speech.ASRResponse, error) {
	var (
		finalText string
		duration  int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		msg, err := decodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch msg.Type {
		case frameServerError:
			payload, err := gunzipBytes(msg.Payload, msg.Compression)
			if err != nil {
				return nil, fmt.Errorf("ASR error message decode failed: %w", err)
			}
			return nil, fmt.Errorf("ASR error %d: %s", msg.ErrorCode, string(payload))

		case frameFullServerResponse:
			payload, err := gunzipBytes(msg.Payload, msg.Compression)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress ASR payload: %w", err)
			}

			var serverResp asrServerPayload
			if err := json.Unmarshal(payload, &serverResp); err != nil {
				c.logger.Warn("asr response unmarshal failed", zap.Error(err))
				continue
			}
			if serverResp.Code != 0 && serverResp.Code != asrSuccessCode {
				return nil, fmt.Errorf("ASR API error %d: %s", serverResp.Code, serverResp.Message)
			}

			text := serverResp.Result.Text
			if text == "" {
				parts := make([]string, 0, len(serverResp.Result.Utterances))
				for _, u := range serverResp.Result.Utterances {
					parts = append(parts, u.Text)
				}
				text = strings.Join(parts, " ")
			}
			if text != "" {
				finalText = text
			}
			if serverResp.AudioInfo.Duration > 0 {
				duration = serverResp.AudioInfo.Duration
			}

			if msg.isLast() {
				return &speech.ASRResponse{
					SessionID:  sessionID,
					Text:       finalText,
					Confidence: estimateConfidence(finalText),
					Duration:   duration,
					RequestID:  sessionID,
					CreatedAt:  time.Now().UTC(),
				}, nil
			}
		}
	}
}

// resolveCredentials 返回规范化后的 AppID 与 AccessToken，缺失时给出明确错误。
func resolveCredentials(cfg *speech.SpeechConfig) (string, string, error) {
	if cfg == nil {
		return "", "", fmt.Errorf("speech config is not initialised")
	}

	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", fmt.Errorf("speech config is missing AppID or AccessToken")
	}
	return appID, token, nil
}

func estimateConfidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return 0.95
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
