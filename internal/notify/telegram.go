package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"go.uber.org/zap"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramSender posts reminders to a single chat through the Telegram Bot API.
type TelegramSender struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

func NewTelegramSender(botToken string, chatID string, logger *zap.Logger) *TelegramSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramSender{
		baseURL:  defaultTelegramAPI,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

func (sender *TelegramSender) SendReminder(ctx context.Context, user models.User, message string) error {
	values := url.Values{}
	values.Set("chat_id", sender.chatID)
	values.Set("text", message)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(sender.baseURL, "/"), sender.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := sender.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, string(body))
	}

	sender.logger.Debug("reminder delivered", zap.Uint("user_id", user.ID))
	return nil
}

// LogSender writes reminders to the log when no chat transport is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (sender *LogSender) SendReminder(_ context.Context, user models.User, message string) error {
	sender.logger.Info("reminder", zap.Uint("user_id", user.ID), zap.String("message", message))
	return nil
}
