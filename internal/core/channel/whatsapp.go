package channel

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

// WhatsAppConfig configures the whatsmeow device session.
type WhatsAppConfig struct {
	// StoreURL is a Postgres DSN for the device store; empty uses SQLitePath.
	StoreURL   string
	SQLitePath string
	QRFile     string
	KeepAlive  time.Duration
}

// WhatsAppChannel is a Sender backed by a linked WhatsApp device. Interactive
// elements are rendered as plain text with typed commands.
type WhatsAppChannel struct {
	cfg    WhatsAppConfig
	client *whatsmeow.Client
	mu     sync.RWMutex
}

func NewWhatsAppChannel(cfg WhatsAppConfig) *WhatsAppChannel {
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "store.db"
	}
	if cfg.QRFile == "" {
		cfg.QRFile = "whatsapp-qr.png"
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 60 * time.Second
	}
	return &WhatsAppChannel{cfg: cfg}
}

func (w *WhatsAppChannel) initStore(ctx context.Context) (*sqlstore.Container, error) {
	dbLog := waLog.Stdout("Database", "ERROR", true)

	if w.cfg.StoreURL != "" {
		log.Info().Msg("🌐 Using PostgreSQL database for WhatsApp store")
		container, err := sqlstore.New(ctx, "postgres", w.cfg.StoreURL, dbLog)
		if err != nil {
			return nil, fmt.Errorf("failed to init PostgreSQL store: %w", err)
		}
		if err := container.Upgrade(ctx); err != nil {
			return nil, fmt.Errorf("failed to upgrade PostgreSQL schema: %w", err)
		}
		return container, nil
	}

	log.Info().Str("path", w.cfg.SQLitePath).Msg("💾 Using local SQLite store")
	rawDB, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", w.cfg.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	container := sqlstore.NewWithDB(rawDB, "sqlite", dbLog)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("failed to upgrade SQLite schema: %w", err)
	}
	return container, nil
}

// Connect links the device, printing and saving a pairing QR on first run.
func (w *WhatsAppChannel) Connect(ctx context.Context) error {
	container, err := w.initStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))
	w.mu.Lock()
	w.client = client
	w.mu.Unlock()

	if client.Store.ID != nil {
		if err := client.Connect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
		log.Info().Msg("✅ Reconnected to WhatsApp")
		return nil
	}

	qrChan, _ := client.GetQRChannel(ctx)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			log.Info().Str("code", evt.Code).Msg("🔗 Scan this QR code in WhatsApp")
			if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 256, w.cfg.QRFile); err != nil {
				log.Warn().Err(err).Msg("⚠️ Failed to write QR image")
			} else {
				log.Info().Str("file", w.cfg.QRFile).Msg("🖼️ QR code saved")
			}
		case "success":
			log.Info().Msg("✅ WhatsApp device linked")
			return nil
		case "timeout":
			return fmt.Errorf("QR code timeout")
		}
	}
	return nil
}

func (w *WhatsAppChannel) Disconnect() {
	if c := w.getClient(); c != nil {
		c.Disconnect()
		log.Info().Msg("🔌 WhatsApp client disconnected")
	}
}

func (w *WhatsAppChannel) IsConnected() bool {
	c := w.getClient()
	return c != nil && c.IsConnected()
}

func (w *WhatsAppChannel) getClient() *whatsmeow.Client {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.client
}

// Listen forwards direct text messages from other users to handle.
func (w *WhatsAppChannel) Listen(handle func(Inbound)) error {
	c := w.getClient()
	if c == nil {
		return fmt.Errorf("client not initialized")
	}
	c.AddEventHandler(func(evt interface{}) {
		msg, ok := evt.(*events.Message)
		if !ok || msg.Info.IsFromMe || msg.Info.IsGroup {
			return
		}
		text := msg.Message.GetConversation()
		if text == "" {
			text = msg.Message.GetExtendedTextMessage().GetText()
		}
		if strings.TrimSpace(text) == "" {
			return
		}
		in := ParseWhatsAppText(msg.Info.Sender.User, text)
		in.MessageID = string(msg.Info.ID)
		handle(in)
	})
	return nil
}

// StartKeepAlive sends an "available" presence periodically until ctx ends.
func (w *WhatsAppChannel) StartKeepAlive(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("🛑 Keep-alive stopped")
			return
		case <-ticker.C:
			if c := w.getClient(); c != nil && c.IsConnected() {
				if err := c.SendPresence(ctx, types.PresenceAvailable); err != nil {
					log.Warn().Err(err).Msg("⚠️ Keep-alive ping failed")
				}
			}
		}
	}
}

var addCommand = regexp.MustCompile(`(?i)^agregar\s+(\d+)$`)

// ParseWhatsAppText turns the typed commands advertised by the text rendering
// back into postbacks.
func ParseWhatsAppText(sender, text string) Inbound {
	in := Inbound{Channel: WhatsApp, SenderID: sender}
	trimmed := strings.TrimSpace(text)

	if m := addCommand.FindStringSubmatch(trimmed); m != nil {
		in.Payload = PayloadAddProductPfx + m[1]
		return in
	}
	switch strings.ToLower(trimmed) {
	case "confirmar":
		in.Payload = PayloadConfirmOrder
	case "cancelar":
		in.Payload = PayloadCancelOrder
	default:
		in.Text = text
	}
	return in
}

func (w *WhatsAppChannel) SendText(ctx context.Context, to, text string) error {
	c := w.getClient()
	if c == nil {
		return fmt.Errorf("client not initialized")
	}
	jid := types.NewJID(to, types.DefaultUserServer)
	_, err := c.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	return err
}

func (w *WhatsAppChannel) SendQuickReplies(ctx context.Context, to, text string, replies []QuickReply) error {
	return w.SendText(ctx, to, renderOptions(text, optionsFromReplies(replies)))
}

func (w *WhatsAppChannel) SendButtons(ctx context.Context, to, text string, buttons []Button) error {
	return w.SendText(ctx, to, renderOptions(text, optionsFromButtons(buttons)))
}

func (w *WhatsAppChannel) SendCards(ctx context.Context, to string, cards []Card) error {
	return w.SendText(ctx, to, renderCards(cards))
}

func (w *WhatsAppChannel) SendTyping(ctx context.Context, to string, on bool) error {
	c := w.getClient()
	if c == nil || !c.IsConnected() {
		return fmt.Errorf("whatsapp client not connected")
	}
	presence := types.ChatPresencePaused
	if on {
		presence = types.ChatPresenceComposing
	}
	jid := types.NewJID(to, types.DefaultUserServer)
	return c.SendChatPresence(ctx, jid, presence, types.ChatPresenceMediaText)
}

// MarkSeen is a no-op: read receipts need the message id, which replies do not carry.
func (w *WhatsAppChannel) MarkSeen(ctx context.Context, to string) error {
	return nil
}

func (w *WhatsAppChannel) Channel() string { return WhatsApp }

func (w *WhatsAppChannel) GetProviderName() string { return "Whatsmeow" }

type option struct {
	title   string
	payload string
}

func optionsFromReplies(replies []QuickReply) []option {
	out := make([]option, 0, len(replies))
	for _, r := range replies {
		out = append(out, option{r.Title, r.Payload})
	}
	return out
}

func optionsFromButtons(buttons []Button) []option {
	out := make([]option, 0, len(buttons))
	for _, b := range buttons {
		if b.Type == ButtonURL {
			out = append(out, option{title: b.Title + ": " + b.URL})
			continue
		}
		out = append(out, option{b.Title, b.Payload})
	}
	return out
}

// command is what a WhatsApp user types to trigger payload.
func command(payload string) string {
	switch {
	case payload == PayloadConfirmOrder:
		return "confirmar"
	case payload == PayloadCancelOrder:
		return "cancelar"
	case strings.HasPrefix(payload, PayloadAddProductPfx):
		return "agregar " + strings.TrimPrefix(payload, PayloadAddProductPfx)
	}
	return ""
}

// renderOptions appends a bullet list of options to text.
func renderOptions(text string, opts []option) string {
	var b strings.Builder
	b.WriteString(text)
	if len(opts) > 0 {
		b.WriteString("\n")
	}
	for _, o := range opts {
		b.WriteString("\n• ")
		b.WriteString(o.title)
		if cmd := command(o.payload); cmd != "" {
			fmt.Fprintf(&b, " (escribe \"%s\")", cmd)
		}
	}
	return b.String()
}

// renderCards lists each card with its subtitle and typed commands.
func renderCards(cards []Card) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		var b strings.Builder
		fmt.Fprintf(&b, "*%s*", c.Title)
		if c.Subtitle != "" {
			b.WriteString("\n")
			b.WriteString(c.Subtitle)
		}
		for _, btn := range c.Buttons {
			if cmd := command(btn.Payload); cmd != "" {
				fmt.Fprintf(&b, "\n👉 %s: escribe \"%s\"", btn.Title, cmd)
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
