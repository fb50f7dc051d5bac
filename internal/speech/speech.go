// Package speech wraps the speech-synthesis and transcription services.
// It only moves sanitized text and audio bytes; all conversational logic
// lives upstream in the orchestrator.
package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Config names the models and voices used for speech.
type Config struct {
	TTSModel string
	STTModel string
	VoiceEN  string
	VoiceVI  string
}

// Service provides text-to-speech and speech-to-text.
type Service struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a speech service sharing the given API client.
func New(client *openai.Client, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "speech"),
	}
}

// Synthesize converts text to MP3 audio, selecting the voice by language
// tag ("vi-*" uses the Vietnamese voice, everything else English).
func (s *Service) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to synthesize")
	}

	voice := s.cfg.VoiceEN
	if strings.HasPrefix(strings.ToLower(lang), "vi") {
		voice = s.cfg.VoiceVI
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	s.logger.DebugContext(ctx, "Speech synthesized", "voice", voice, "bytes", len(audio))
	return audio, nil
}

// Transcribe converts an uploaded audio stream to text.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.STTModel,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	s.logger.DebugContext(ctx, "Audio transcribed", "chars", len(text))
	return text, nil
}
