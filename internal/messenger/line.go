package messenger

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// lineMaxText is the LINE limit for one text message.
const lineMaxText = 5000

// lineAPI is the part of *messaging_api.MessagingApiAPI the adapter uses.
type lineAPI interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// LINE is the LINE Messaging API adapter.
type LINE struct {
	secret string
	api    lineAPI
}

// NewLINE builds the adapter from the channel secret and access token.
func NewLINE(channelSecret, accessToken string, client *http.Client) (*LINE, error) {
	if channelSecret == "" || accessToken == "" {
		return nil, errors.New("line: channel secret and access token are required")
	}
	opts := []messaging_api.MessagingApiAPIOption{}
	if client != nil {
		opts = append(opts, messaging_api.WithHTTPClient(client))
	}
	api, err := messaging_api.NewMessagingApiAPI(accessToken, opts...)
	if err != nil {
		return nil, err
	}
	return &LINE{secret: channelSecret, api: api}, nil
}

func (l *LINE) Name() string { return PlatformLINE }

// ParseRequest verifies X-Line-Signature and returns the text messages sent
// by users.
func (l *LINE) ParseRequest(r *http.Request) ([]Inbound, error) {
	cb, err := webhook.ParseRequest(l.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, err
	}

	out := make([]Inbound, 0, len(cb.Events))
	for _, ev := range cb.Events {
		e, ok := ev.(webhook.MessageEvent)
		if !ok {
			continue
		}
		msg, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			continue
		}
		userID := lineUserID(e.Source)
		if userID == "" {
			continue
		}
		in := Inbound{
			Platform:   PlatformLINE,
			UserID:     userID,
			Text:       msg.Text,
			EventID:    e.WebhookEventId,
			ReplyToken: e.ReplyToken,
		}
		if e.DeliveryContext != nil {
			in.Redelivery = e.DeliveryContext.IsRedelivery
		}
		out = append(out, in)
	}
	return out, nil
}

func lineUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// Reply answers with the event's reply token.
func (l *LINE) Reply(ctx context.Context, in Inbound, text string) error {
	if in.ReplyToken == "" {
		return errors.New("line: missing reply token")
	}
	return call(ctx, func() error {
		_, err := l.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
			ReplyToken: in.ReplyToken,
			Messages:   []messaging_api.MessageInterface{messaging_api.TextMessage{Text: clip(text, lineMaxText)}},
		})
		return err
	})
}

// Push sends text to userID. Each push carries a fresh retry key so LINE can
// drop duplicates if the HTTP call is retried.
func (l *LINE) Push(ctx context.Context, userID, text string) error {
	return call(ctx, func() error {
		_, err := l.api.PushMessage(&messaging_api.PushMessageRequest{
			To:       userID,
			Messages: []messaging_api.MessageInterface{messaging_api.TextMessage{Text: clip(text, lineMaxText)}},
		}, uuid.NewString())
		return err
	})
}
