package speech

import "io"

// ASRRequest 语音识别请求
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, pcm, webm, etc.
	Language  string    `json:"language"` // en-US, sw-KE, etc.
}
