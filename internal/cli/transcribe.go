package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/config"
	"github.com/zhouzirui/aquaguard/backend/internal/observability"
	"github.com/zhouzirui/aquaguard/backend/internal/service/speech"
)

func init() {
	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe a recorded question and resolve it",
		Args:  cobra.NoArgs,
		RunE:  runTranscribe,
	}

	cmd.Flags().StringP("audio", "a", "", "Audio file path (required)")
	cmd.Flags().String("audio-format", "", "Audio format, inferred from the file extension by default")
	cmd.Flags().StringP("lang", "l", "", "Language code, defaults to SPEECH_ASR_LANGUAGE")
	cmd.Flags().Duration("timeout", 45*time.Second, "Request timeout")

	cmd.MarkFlagRequired("audio")

	RootCmd.AddCommand(cmd)
}

func runTranscribe(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	audioPath, _ := cmd.Flags().GetString("audio")
	format, _ := cmd.Flags().GetString("audio-format")
	language, _ := cmd.Flags().GetString("lang")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if !cfg.Speech.Enabled() {
		return errors.New("speech recognition is not configured: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}

	logger, err := observability.NewLogger(cfg.Log.Level, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if format == "" {
		format = speech.FormatFromFilename(audioPath)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	svc := speech.NewService(cfg.Speech.Model(), logger)
	sessionID := "cli-" + uuid.NewString()
	start := time.Now()
	resp, err := svc.TranscribeBuffer(ctx, sessionID, audio, format, language)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	logger.Debug("transcription finished", zap.Duration("elapsed", time.Since(start)), zap.String("session_id", sessionID))

	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		return errors.New("no speech detected in audio")
	}

	matcher, err := newMatcher()
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	res := matcher.Match(transcript)

	if formatFlag == "json" {
		return writeJSON(cmd.OutOrStdout(), newAnswer(transcript, res))
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "> %s\n%s\n", transcript, res.Response)
	return err
}
