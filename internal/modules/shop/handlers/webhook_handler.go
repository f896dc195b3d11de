package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/dispatch"
)

// TurnRunner processes one inbound customer event.
type TurnRunner interface {
	HandleInbound(ctx context.Context, in channel.Inbound) error
}

// Dispatcher runs a batch of tasks after the request has been answered.
type Dispatcher interface {
	Submit(batch string, tasks []dispatch.Task) bool
}

type WebhookHandler struct {
	verifyToken string
	runner      TurnRunner
	dispatcher  Dispatcher
}

func NewWebhookHandler(verifyToken string, runner TurnRunner, dispatcher Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		runner:      runner,
		dispatcher:  dispatcher,
	}
}

// MessengerEvent is the body Meta posts to the webhook.
type MessengerEvent struct {
	Object string           `json:"object" example:"page"`
	Entry  []MessengerEntry `json:"entry"`
}

type MessengerEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

type MessagingEvent struct {
	Sender    MessengerParty    `json:"sender"`
	Recipient MessengerParty    `json:"recipient"`
	Timestamp int64             `json:"timestamp"`
	Message   *MessengerMessage `json:"message,omitempty"`
	Postback  *MessengerPayload `json:"postback,omitempty"`
}

type MessengerParty struct {
	ID string `json:"id"`
}

type MessengerMessage struct {
	Mid        string            `json:"mid"`
	Text       string            `json:"text"`
	IsEcho     bool              `json:"is_echo"`
	QuickReply *MessengerPayload `json:"quick_reply,omitempty"`
}

type MessengerPayload struct {
	Mid     string `json:"mid,omitempty"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// VerifyWebhook godoc
// @Summary Messenger webhook verification
// @Description Answers Meta's subscription handshake with hub.challenge when the verify token matches
// @Tags Webhook
// @Produce plain
// @Param hub.mode query string true "Subscription mode" example(subscribe)
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string "challenge"
// @Failure 400 {string} string
// @Failure 403 {string} string
// @Router /webhook [get]
func (h *WebhookHandler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		log.Warn().Str("mode", mode).Msg("⚠️ Webhook verification failed")
		return c.SendStatus(fiber.StatusForbidden)
	}

	log.Info().Msg("✅ Webhook verified")
	return c.Status(fiber.StatusOK).SendString(challenge)
}

// ReceiveWebhook godoc
// @Summary Messenger webhook receiver
// @Description Acknowledges a batch of page events and processes each entry in the background
// @Tags Webhook
// @Accept json
// @Produce plain
// @Param X-Hub-Signature-256 header string false "sha256=<hex HMAC of the body>"
// @Param payload body MessengerEvent true "Webhook payload"
// @Success 200 {string} string "EVENT_RECEIVED"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {string} string
// @Router /webhook [post]
func (h *WebhookHandler) ReceiveWebhook(c *fiber.Ctx) error {
	var event MessengerEvent
	if err := c.BodyParser(&event); err != nil {
		log.Warn().Err(err).Msg("❌ Failed to parse webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid payload",
		})
	}
	if event.Object != "page" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	inbound := InboundFromEvent(event)
	if len(inbound) > 0 {
		tasks := make([]dispatch.Task, 0, len(inbound))
		for _, in := range inbound {
			in := in
			tasks = append(tasks, func(ctx context.Context) error {
				return h.runner.HandleInbound(ctx, in)
			})
		}

		batch := fmt.Sprintf("messenger-%s", inbound[0].SenderID)
		if !h.dispatcher.Submit(batch, tasks) {
			log.Warn().Int("events", len(tasks)).Msg("⚠️ Dispatcher stopped, webhook batch dropped")
		}
	}

	return c.Status(fiber.StatusOK).SendString("EVENT_RECEIVED")
}

// InboundFromEvent takes the first messaging event of every entry. Quick
// replies and postbacks become payload turns, plain text becomes a text turn;
// echoes of the page's own messages and anything else are skipped.
func InboundFromEvent(event MessengerEvent) []channel.Inbound {
	var out []channel.Inbound
	for _, entry := range event.Entry {
		if len(entry.Messaging) == 0 {
			continue
		}
		m := entry.Messaging[0]
		if m.Sender.ID == "" {
			continue
		}

		in := channel.Inbound{Channel: channel.Messenger, SenderID: m.Sender.ID}
		switch {
		case m.Message != nil && m.Message.IsEcho:
			continue
		case m.Message != nil && m.Message.QuickReply != nil && m.Message.QuickReply.Payload != "":
			in.MessageID = m.Message.Mid
			in.Payload = m.Message.QuickReply.Payload
		case m.Message != nil && m.Message.Text != "":
			in.MessageID = m.Message.Mid
			in.Text = m.Message.Text
		case m.Postback != nil && m.Postback.Payload != "":
			in.MessageID = m.Postback.Mid
			in.Payload = m.Postback.Payload
		default:
			continue
		}
		out = append(out, in)
	}
	return out
}
