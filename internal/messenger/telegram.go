package messenger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramSecretHeader carries the secret configured with setWebhook.
const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// telegramMaxText is the Telegram limit for one text message.
const telegramMaxText = 4096

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram is the Telegram Bot API adapter. Users are identified by their
// private chat id, which is also the push target.
type Telegram struct {
	secret string
	api    telegramSender
}

// NewTelegram authorizes the bot token.
func NewTelegram(token, webhookSecret string, client *http.Client) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if webhookSecret == "" {
		return nil, errors.New("telegram: webhook secret is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	return &Telegram{secret: webhookSecret, api: api}, nil
}

func (t *Telegram) Name() string { return PlatformTelegram }

// ParseRequest checks the secret token header and decodes one Update.
// Without a configured secret every request is rejected.
func (t *Telegram) ParseRequest(r *http.Request) ([]Inbound, error) {
	got := r.Header.Get(telegramSecretHeader)
	if t.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(t.secret)) != 1 {
		return nil, ErrInvalidSignature
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	msg := upd.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return []Inbound{}, nil
	}
	return []Inbound{{
		Platform: PlatformTelegram,
		UserID:   strconv.FormatInt(msg.Chat.ID, 10),
		Text:     msg.Text,
		EventID:  strconv.Itoa(upd.UpdateID),
		ChatID:   msg.Chat.ID,
	}}, nil
}

func (t *Telegram) Reply(ctx context.Context, in Inbound, text string) error {
	return t.send(ctx, in.ChatID, text)
}

func (t *Telegram) Push(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: bad chat id %q: %w", userID, err)
	}
	return t.send(ctx, chatID, text)
}

func (t *Telegram) send(ctx context.Context, chatID int64, text string) error {
	return call(ctx, func() error {
		_, err := t.api.Send(tgbotapi.NewMessage(chatID, clip(text, telegramMaxText)))
		return err
	})
}
