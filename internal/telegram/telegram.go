// Package telegram exposes the coach over Telegram: text messages and
// voice notes become conversation turns, replies go back as text.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/sunnylabs/coachd/internal/convo"
	"github.com/sunnylabs/coachd/internal/logger"
	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/speech"
)

const (
	voiceDownloadTimeout = 30 * time.Second
	sendMessageTimeout   = 10 * time.Second
)

// Bot adapts Telegram updates to orchestrator turns.
type Bot struct {
	tg     *bot.Bot
	logger *slog.Logger
}

// New creates the Telegram bot and registers its handlers.
func New(token string, log *slog.Logger, orch *convo.Orchestrator, store profile.Store, sp *speech.Service) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	h := &handler{
		logger: log.With("component", "telegram"),
		orch:   orch,
		store:  store,
		speech: sp,
	}

	opts := []bot.Option{
		bot.WithMiddlewares(logger.TelegramMiddleware(h.logger)),
		bot.WithDefaultHandler(h.handleMessage),
	}
	tg, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	tg.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	tg.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypePrefix, h.handleReset)

	return &Bot{tg: tg, logger: h.logger}, nil
}

// Run starts long polling until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Telegram bot listening")
	b.tg.Start(ctx)
	b.logger.Info("Telegram bot stopped")
	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	return nil
}

type handler struct {
	logger *slog.Logger
	orch   *convo.Orchestrator
	store  profile.Store
	speech *speech.Service
}

func (h *handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	res, err := h.orch.HandleTurn(ctx, convo.Request{
		UserID:      userID(msg.From.ID),
		IncludeSeed: true,
		NameHint:    msg.From.FirstName,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "seed turn failed", "error", err, "chat_id", msg.Chat.ID)
		return
	}
	h.send(ctx, b, msg.Chat.ID, res.Reply)
}

func (h *handler) handleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if err := h.store.Reset(ctx, userID(msg.From.ID)); err != nil {
		h.logger.ErrorContext(ctx, "reset failed", "error", err, "chat_id", msg.Chat.ID)
		h.send(ctx, b, msg.Chat.ID, "Sorry, I could not reset our chat. Please try again.")
		return
	}
	h.send(ctx, b, msg.Chat.ID, "Okay, we are starting fresh! Say hi when you are ready.")
}

func (h *handler) handleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" && msg.Voice != nil {
		transcript, err := h.transcribeVoice(ctx, b, msg.Voice)
		if err != nil {
			h.logger.ErrorContext(ctx, "voice transcription failed", "error", err, "chat_id", msg.Chat.ID)
			h.send(ctx, b, msg.Chat.ID, "I could not hear that one. Can you say it again?")
			return
		}
		text = transcript
	}

	res, err := h.orch.HandleTurn(ctx, convo.Request{
		UserID:   userID(msg.From.ID),
		UserText: text,
		NoReply:  text == "",
		NameHint: msg.From.FirstName,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "turn failed", "error", err, "chat_id", msg.Chat.ID)
		return
	}
	h.send(ctx, b, msg.Chat.ID, res.Reply)
}

func (h *handler) transcribeVoice(ctx context.Context, b *bot.Bot, voice *models.Voice) (string, error) {
	if h.speech == nil {
		return "", fmt.Errorf("speech service not configured")
	}

	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: voice.FileID})
	if err != nil {
		return "", fmt.Errorf("failed to get voice file: %w", err)
	}

	dlCtx, cancel := context.WithTimeout(ctx, voiceDownloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voice download returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 25<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read voice file: %w", err)
	}
	return h.speech.Transcribe(ctx, bytes.NewReader(audio), "voice.ogg")
}

func (h *handler) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.logger.ErrorContext(ctx, "failed to send message", "error", err, "chat_id", chatID)
	}
}

func userID(tgID int64) string {
	return "tg:" + strconv.FormatInt(tgID, 10)
}
