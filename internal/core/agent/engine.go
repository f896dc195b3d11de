// Package agent is the dialogue engine: it runs one customer turn through
// intent classification, the ordering state machine and reply delivery.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/conversation"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
)

const (
	recentContextTurns = 5
	duplicateWindow    = 2 * time.Second
	messageIDWindow    = 10 * time.Minute
)

// Deps are the engine's collaborators.
type Deps struct {
	Users      Users
	Products   Products
	Orders     Orders
	Log        ConversationLog
	States     conversation.Store
	Classifier IntentClassifier
	Contacts   ContactExtractor
	Answers    AnswerFinder
}

type Engine struct {
	users      Users
	products   Products
	orders     Orders
	convLog    ConversationLog
	states     conversation.Store
	classifier IntentClassifier
	contacts   ContactExtractor
	answers    AnswerFinder

	sendersMu sync.RWMutex
	senders   map[string]channel.Sender

	// recent holds the dedupe keys of events seen lately, see duplicateKey.
	recent *cache.Cache
}

func NewEngine(d Deps) *Engine {
	return &Engine{
		users:      d.Users,
		products:   d.Products,
		orders:     d.Orders,
		convLog:    d.Log,
		states:     d.States,
		classifier: d.Classifier,
		contacts:   d.Contacts,
		answers:    d.Answers,
		senders:    make(map[string]channel.Sender),
		recent:     cache.New(duplicateWindow, time.Minute),
	}
}

// RegisterSender makes replies for s.Channel() go through s.
func (e *Engine) RegisterSender(s channel.Sender) {
	e.sendersMu.Lock()
	defer e.sendersMu.Unlock()
	e.senders[s.Channel()] = s
	log.Info().Str("channel", s.Channel()).Str("provider", s.GetProviderName()).Msg("✅ Channel registered")
}

// Channels lists the registered channel names.
func (e *Engine) Channels() []string {
	e.sendersMu.RLock()
	defer e.sendersMu.RUnlock()
	out := make([]string, 0, len(e.senders))
	for name := range e.senders {
		out = append(out, name)
	}
	return out
}

func (e *Engine) sender(name string) (channel.Sender, bool) {
	e.sendersMu.RLock()
	defer e.sendersMu.RUnlock()
	s, ok := e.senders[name]
	return s, ok
}

// HandleInbound runs one turn. Errors inside the turn, panics included, are
// answered with an apology and never returned to other turns; the returned
// error only reports events that could not be attributed to a channel.
func (e *Engine) HandleInbound(ctx context.Context, in channel.Inbound) error {
	s, ok := e.sender(in.Channel)
	if !ok {
		return fmt.Errorf("no sender registered for channel %q", in.Channel)
	}
	if in.SenderID == "" || (in.Text == "" && in.Payload == "") {
		return nil
	}

	if key, ttl, ok := duplicateKey(in); ok {
		if err := e.recent.Add(key, struct{}{}, ttl); err != nil {
			log.Warn().Str("sender", in.SenderID).Str("mid", in.MessageID).Msg("⚠️ Duplicate event ignored")
			return nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("sender", in.SenderID).
				Str("stack", string(debug.Stack())).
				Msg("🔥 Turn panicked")
			e.apologize(ctx, s, in.SenderID)
		}
	}()

	if err := e.runTurn(ctx, s, in); err != nil {
		log.Error().Err(err).Str("channel", in.Channel).Str("sender", in.SenderID).Msg("❌ Turn failed")
		e.apologize(ctx, s, in.SenderID)
	}
	return nil
}

// duplicateKey identifies redeliveries. Events with a platform id match on the
// id alone; without one, identical text from the same sender inside
// duplicateWindow is dropped. Button presses without an id are never dropped
// since pressing twice is a real request.
func duplicateKey(in channel.Inbound) (string, time.Duration, bool) {
	if in.MessageID != "" {
		return in.Channel + "|" + in.SenderID + "|mid|" + in.MessageID, messageIDWindow, true
	}
	if in.IsPostback() {
		return "", 0, false
	}
	return in.Channel + "|" + in.SenderID + "|text|" + in.Text, cache.DefaultExpiration, true
}

func (e *Engine) runTurn(ctx context.Context, s channel.Sender, in channel.Inbound) error {
	if err := s.MarkSeen(ctx, in.SenderID); err != nil {
		log.Debug().Err(err).Msg("mark_seen failed")
	}
	if err := s.SendTyping(ctx, in.SenderID, true); err != nil {
		log.Debug().Err(err).Msg("typing_on failed")
	}
	defer func() {
		if err := s.SendTyping(context.WithoutCancel(ctx), in.SenderID, false); err != nil {
			log.Debug().Err(err).Msg("typing_off failed")
		}
	}()

	user, err := e.users.FindOrCreate(ctx, in.Channel, in.SenderID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	turn := Turn{User: user, Text: in.Text, Payload: in.Payload}
	if in.IsPostback() {
		turn.Intent, turn.AddProductID = mapPostback(in.Payload)
	} else {
		recent, err := e.convLog.RecentContext(ctx, user.ID, recentContextTurns)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Failed to load recent context")
		}
		turn.Intent = e.classifier.Identify(ctx, in.Text, recent)
	}

	log.Info().
		Str("channel", in.Channel).
		Str("user_id", user.ID.String()).
		Str("intent", string(turn.Intent.Intent)).
		Float64("confidence", turn.Intent.Confidence).
		Msg("📩 Inbound message")

	e.saveMessage(ctx, &models.Conversation{
		UserID:      user.ID,
		MessageType: models.MessageTypeUser,
		MessageText: firstNonEmpty(in.Text, in.Payload),
		Intent:      string(turn.Intent.Intent),
		Confidence:  turn.Intent.Confidence,
		Metadata:    metadata(in),
	})

	stateKey := user.ID.String()
	turn.State, err = e.states.Get(ctx, stateKey)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	out := e.Decide(ctx, turn)

	for _, r := range out.Replies {
		if err := r.send(ctx, s, in.SenderID); err != nil {
			log.Error().Err(err).Str("channel", in.Channel).Msg("❌ Failed to deliver reply")
		}
	}

	if transcript := out.Transcript(); transcript != "" {
		e.saveMessage(ctx, &models.Conversation{
			UserID:      user.ID,
			MessageType: models.MessageTypeBot,
			MessageText: transcript,
		})
	}

	if err := e.apply(ctx, stateKey, out); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	log.Debug().
		Str("user_id", stateKey).
		Str("from", string(turn.State.Current)).
		Str("op", out.Op.String()).
		Str("to", string(out.Next)).
		Msg("state transition")
	return nil
}

func (e *Engine) apply(ctx context.Context, key string, out Outcome) error {
	switch out.Op {
	case OpSet:
		return e.states.Set(ctx, key, out.Next, out.Context)
	case OpMerge:
		_, err := e.states.MergeContext(ctx, key, out.Context)
		return err
	case OpClear:
		return e.states.Clear(ctx, key)
	default:
		return nil
	}
}

func (e *Engine) saveMessage(ctx context.Context, msg *models.Conversation) {
	if err := e.convLog.SaveMessage(ctx, msg); err != nil {
		log.Warn().Err(err).Str("type", msg.MessageType).Msg("⚠️ Failed to log message")
	}
}

func (e *Engine) apologize(ctx context.Context, s channel.Sender, to string) {
	if err := s.SendText(context.WithoutCancel(ctx), to, msgApology); err != nil {
		log.Error().Err(err).Msg("❌ Failed to send apology")
	}
}

func metadata(in channel.Inbound) datatypes.JSON {
	m := map[string]string{"channel": in.Channel}
	if in.Payload != "" {
		m["payload"] = in.Payload
	}
	raw, _ := json.Marshal(m)
	return datatypes.JSON(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
