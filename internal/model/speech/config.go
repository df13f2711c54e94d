package speech

// SpeechConfig 语音识别服务配置
type SpeechConfig struct {
	AppID          string `json:"appId"`            // 火山引擎 APP ID
	AccessToken    string `json:"accessToken"`      // 火山引擎 Access Token
	APIKey         string `json:"apiKey,omitempty"` // 兼容旧配置的 API Key
	BaseURL        string `json:"baseUrl"`          // 覆盖默认的 ASR WebSocket 地址
	ConcurrentMode bool   `json:"concurrentMode"`   // ASR并发模式（false为小时版）
	ASRLanguage    string `json:"asrLanguage"`

	Timeout         int    `json:"timeout"`         // seconds
	BreakerFailures uint32 `json:"breakerFailures"` // 连续失败多少次后熔断
}
