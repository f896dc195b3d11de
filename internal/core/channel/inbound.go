package channel

// Inbound is one customer event normalised across platforms. Exactly one of
// Text or Payload is set. MessageID is the platform's id for the event when
// it has one; redeliveries carry the same id.
type Inbound struct {
	Channel   string
	SenderID  string
	MessageID string
	Text      string
	Payload   string
}

// IsPostback reports whether the event came from a button or quick reply.
func (in Inbound) IsPostback() bool {
	return in.Payload != ""
}
