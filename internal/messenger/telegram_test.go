package messenger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeTelegram struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func telegramRequest(secret, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(telegramSecretHeader, secret)
	}
	return req
}

func TestTelegram_ParseRequest(t *testing.T) {
	tg := &Telegram{secret: "s3cret", api: &fakeTelegram{}}
	body := `{"update_id":77,"message":{"message_id":1,"date":1,"chat":{"id":4242,"type":"private"},"from":{"id":4242,"is_bot":false,"first_name":"A"},"text":"查詢"}}`

	got, err := tg.ParseRequest(telegramRequest("s3cret", body))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "4242" || got[0].ChatID != 4242 || got[0].Text != "查詢" || got[0].EventID != "77" {
		t.Fatalf("got %+v", got)
	}

	if _, err := tg.ParseRequest(telegramRequest("nope", body)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("bad secret err = %v", err)
	}
	if _, err := tg.ParseRequest(telegramRequest("s3cret", "{")); err == nil {
		t.Fatal("expected decode error")
	}

	// Non-text updates are ignored.
	got, err = tg.ParseRequest(telegramRequest("s3cret", `{"update_id":78,"edited_message":{"message_id":2,"date":1,"chat":{"id":1,"type":"private"},"text":"x"}}`))
	if err != nil || len(got) != 0 {
		t.Fatalf("got %+v err=%v", got, err)
	}
}

func TestTelegram_ReplyAndPush(t *testing.T) {
	api := &fakeTelegram{}
	tg := &Telegram{api: api}
	ctx := context.Background()

	if err := tg.Reply(ctx, Inbound{ChatID: 9}, "hi"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if err := tg.Push(ctx, "10", "reminder"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := tg.Push(ctx, "not-a-chat", "x"); err == nil {
		t.Fatal("expected bad chat id error")
	}
	if len(api.sent) != 2 || api.sent[0].ChatID != 9 || api.sent[1].ChatID != 10 || api.sent[1].Text != "reminder" {
		t.Fatalf("sent = %+v", api.sent)
	}

	api.err = errors.New("forbidden")
	if err := tg.Push(ctx, "10", "x"); err == nil {
		t.Fatal("expected send error")
	}
}

func TestNewTelegram_RequiresToken(t *testing.T) {
	if _, err := NewTelegram("", "", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewTelegram_RequiresWebhookSecret(t *testing.T) {
	if _, err := NewTelegram("123:abc", "", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestTelegram_NoSecretRejectsEverything(t *testing.T) {
	tg := &Telegram{api: &fakeTelegram{}}
	body := `{"update_id":1,"message":{"message_id":1,"date":1,"chat":{"id":1,"type":"private"},"text":"add"}}`
	for _, secret := range []string{"", "anything"} {
		if _, err := tg.ParseRequest(telegramRequest(secret, body)); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("secret %q: err = %v", secret, err)
		}
	}
}
