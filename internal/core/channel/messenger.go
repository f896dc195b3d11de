package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const graphBaseURL = "https://graph.facebook.com"

// MessengerConfig holds the Send API credentials.
type MessengerConfig struct {
	PageAccessToken string
	APIVersion      string // default v18.0
	BaseURL         string
	Timeout         time.Duration
}

// MessengerSender implements Sender over the Messenger Send API.
// Documentation: https://developers.facebook.com/docs/messenger-platform/reference/send-api
type MessengerSender struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewMessengerSender(cfg MessengerConfig) (*MessengerSender, error) {
	if cfg.PageAccessToken == "" {
		return nil, fmt.Errorf("page access token is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v18.0"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = graphBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &MessengerSender{
		endpoint: fmt.Sprintf("%s/%s/me/messages", cfg.BaseURL, cfg.APIVersion),
		token:    cfg.PageAccessToken,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient    recipient       `json:"recipient"`
	Message      *messagePayload `json:"message,omitempty"`
	SenderAction string          `json:"sender_action,omitempty"`
}

type messagePayload struct {
	Text         string           `json:"text,omitempty"`
	QuickReplies []quickReplyWire `json:"quick_replies,omitempty"`
	Attachment   *attachmentWire  `json:"attachment,omitempty"`
}

type quickReplyWire struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type attachmentWire struct {
	Type    string          `json:"type"`
	Payload templatePayload `json:"payload"`
}

type templatePayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text,omitempty"`
	Buttons      []Button `json:"buttons,omitempty"`
	Elements     []Card   `json:"elements,omitempty"`
}

func (m *MessengerSender) SendText(ctx context.Context, to, text string) error {
	return m.send(ctx, sendRequest{Recipient: recipient{to}, Message: &messagePayload{Text: text}})
}

func (m *MessengerSender) SendQuickReplies(ctx context.Context, to, text string, replies []QuickReply) error {
	wire := make([]quickReplyWire, 0, len(replies))
	for _, r := range replies {
		wire = append(wire, quickReplyWire{ContentType: "text", Title: r.Title, Payload: r.Payload})
	}
	return m.send(ctx, sendRequest{
		Recipient: recipient{to},
		Message:   &messagePayload{Text: text, QuickReplies: wire},
	})
}

func (m *MessengerSender) SendButtons(ctx context.Context, to, text string, buttons []Button) error {
	wire := make([]Button, 0, len(buttons))
	for _, b := range buttons {
		if b.Type == "" {
			b.Type = ButtonPostback
		}
		wire = append(wire, b)
	}
	return m.send(ctx, sendRequest{
		Recipient: recipient{to},
		Message: &messagePayload{Attachment: &attachmentWire{
			Type:    "template",
			Payload: templatePayload{TemplateType: "button", Text: text, Buttons: wire},
		}},
	})
}

// SendCards sends a generic template carousel.
func (m *MessengerSender) SendCards(ctx context.Context, to string, cards []Card) error {
	return m.send(ctx, sendRequest{
		Recipient: recipient{to},
		Message: &messagePayload{Attachment: &attachmentWire{
			Type:    "template",
			Payload: templatePayload{TemplateType: "generic", Elements: cards},
		}},
	})
}

func (m *MessengerSender) SendTyping(ctx context.Context, to string, on bool) error {
	action := "typing_off"
	if on {
		action = "typing_on"
	}
	return m.send(ctx, sendRequest{Recipient: recipient{to}, SenderAction: action})
}

func (m *MessengerSender) MarkSeen(ctx context.Context, to string) error {
	return m.send(ctx, sendRequest{Recipient: recipient{to}, SenderAction: "mark_seen"})
}

func (m *MessengerSender) Channel() string { return Messenger }

func (m *MessengerSender) GetProviderName() string { return "Messenger Send API" }

func (m *MessengerSender) send(ctx context.Context, payload sendRequest) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	reqURL := m.endpoint + "?access_token=" + url.QueryEscape(m.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	log.Debug().Str("recipient", payload.Recipient.ID).Msg("📤 Messenger message sent")
	return nil
}
