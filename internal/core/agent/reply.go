package agent

import (
	"context"
	"strings"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/conversation"
)

// Reply is one outbound message. The richest populated field decides the
// message kind: cards, then buttons, then quick replies, then plain text.
type Reply struct {
	Text         string
	QuickReplies []channel.QuickReply
	Buttons      []channel.Button
	Cards        []channel.Card
}

func text(s string) Reply { return Reply{Text: s} }

func withQuickReplies(s string, replies ...channel.QuickReply) Reply {
	return Reply{Text: s, QuickReplies: replies}
}

func withButtons(s string, buttons ...channel.Button) Reply {
	return Reply{Text: s, Buttons: buttons}
}

func (r Reply) send(ctx context.Context, s channel.Sender, to string) error {
	switch {
	case len(r.Cards) > 0:
		return s.SendCards(ctx, to, r.Cards)
	case len(r.Buttons) > 0:
		return s.SendButtons(ctx, to, r.Text, r.Buttons)
	case len(r.QuickReplies) > 0:
		return s.SendQuickReplies(ctx, to, r.Text, r.QuickReplies)
	default:
		return s.SendText(ctx, to, r.Text)
	}
}

// StateOp says what a transition does to the stored conversation state.
type StateOp int

const (
	OpKeep StateOp = iota
	OpSet
	OpMerge
	OpClear
)

func (op StateOp) String() string {
	return [...]string{"keep", "set", "merge", "clear"}[op]
}

// Outcome is the result of one transition: what to say and how state changes.
type Outcome struct {
	Replies []Reply
	Op      StateOp
	Next    conversation.StateName
	Context conversation.Context
}

func keep(replies ...Reply) Outcome {
	return Outcome{Replies: replies, Op: OpKeep}
}

func reset(replies ...Reply) Outcome {
	return Outcome{Replies: replies, Op: OpClear}
}

func set(next conversation.StateName, c conversation.Context, replies ...Reply) Outcome {
	return Outcome{Replies: replies, Op: OpSet, Next: next, Context: c}
}

func merge(patch conversation.Context, replies ...Reply) Outcome {
	return Outcome{Replies: replies, Op: OpMerge, Context: patch}
}

// Transcript joins the text of every reply, for the conversation log.
func (o Outcome) Transcript() string {
	parts := make([]string, 0, len(o.Replies))
	for _, r := range o.Replies {
		if r.Text != "" {
			parts = append(parts, r.Text)
			continue
		}
		for _, c := range r.Cards {
			parts = append(parts, "[producto] "+c.Title)
		}
	}
	return strings.Join(parts, "\n\n")
}
