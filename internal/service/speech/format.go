package speech

import (
	"path/filepath"
	"strings"
)

// FormatFromFilename 从文件名推断音频格式，无法识别时按 wav 处理
func FormatFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "mp3"
	case ".ogg", ".opus":
		return "ogg"
	case ".pcm", ".raw":
		return "pcm"
	default:
		return "wav"
	}
}
