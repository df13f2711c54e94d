package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/aquaguard/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Metrics MetricsConfig
	Speech  SpeechConfig
	Voice   VoiceConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	metricsEnabled, err := parseBoolEnv("METRICS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	speechCfg, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Log:     logCfg,
		Metrics: MetricsConfig{Enabled: metricsEnabled},
		Speech:  speechCfg,
		Voice:   voice,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 日志级别与输出格式。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
	if format != "json" && format != "console" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q: want json or console", format)
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: format,
	}, nil
}

// MetricsConfig 控制 /metrics 是否暴露。
type MetricsConfig struct {
	Enabled bool
}

// SpeechConfig 描述语音识别服务相关配置
type SpeechConfig struct {
	AppID           string
	AccessToken     string
	APIKey          string
	BaseURL         string
	ASRLanguage     string
	ConcurrentMode  bool
	Timeout         int
	BreakerFailures uint32
}

// Enabled 表示是否提供了必需的凭证。
func (c SpeechConfig) Enabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// Model 转换为语音服务使用的配置结构。
func (c SpeechConfig) Model() *speech.SpeechConfig {
	return &speech.SpeechConfig{
		AppID:           c.AppID,
		AccessToken:     c.AccessToken,
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		ConcurrentMode:  c.ConcurrentMode,
		ASRLanguage:     c.ASRLanguage,
		Timeout:         c.Timeout,
		BreakerFailures: c.BreakerFailures,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	concurrent, err := parseBoolEnv("SPEECH_CONCURRENT_MODE", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	breakerFailures := uint32(3)
	if override, err := parseOptionalIntEnv("SPEECH_BREAKER_FAILURES"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return SpeechConfig{}, fmt.Errorf("invalid SPEECH_BREAKER_FAILURES value %d: must be positive", *override)
		}
		breakerFailures = uint32(*override)
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	return SpeechConfig{
		AppID:           strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:     accessToken,
		APIKey:          apiKey,
		BaseURL:         getEnvOrDefault("SPEECH_BASE_URL", ""),
		ASRLanguage:     getEnvOrDefault("SPEECH_ASR_LANGUAGE", "en-US"),
		ConcurrentMode:  concurrent,
		Timeout:         timeoutSeconds,
		BreakerFailures: breakerFailures,
	}, nil
}

// VoiceConfig 语音会话配置
type VoiceConfig struct {
	MaxCapture time.Duration
}

func loadVoiceConfig() (VoiceConfig, error) {
	maxCapture := 30 * time.Second
	seconds, err := parseOptionalIntEnv("VOICE_MAX_CAPTURE_SECONDS")
	if err != nil {
		return VoiceConfig{}, err
	}
	if seconds != nil {
		if *seconds < 1 {
			return VoiceConfig{}, fmt.Errorf("invalid VOICE_MAX_CAPTURE_SECONDS value %d: must be positive", *seconds)
		}
		maxCapture = time.Duration(*seconds) * time.Second
	}
	return VoiceConfig{MaxCapture: maxCapture}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
