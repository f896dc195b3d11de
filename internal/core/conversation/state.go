// Package conversation keeps the per-user dialogue state: which step of the
// ordering flow a customer is in and the cart/context gathered so far.
package conversation

import (
	"encoding/json"
	"fmt"
	"time"
)

type StateName string

const (
	StateInitial              StateName = "initial"
	StateAwaitingProducts     StateName = "awaiting_products"
	StateAwaitingConfirmation StateName = "awaiting_confirmation"
	StateCollectingUserData   StateName = "collecting_user_data"
	StateOrderConfirmed       StateName = "order_confirmed"
)

// AllStates lists every state, in flow order.
var AllStates = []StateName{
	StateInitial, StateAwaitingProducts, StateAwaitingConfirmation, StateCollectingUserData, StateOrderConfirmed,
}

const (
	ActionQuote = "quote"
	ActionOrder = "order"
)

// CartLine is one selected product.
type CartLine struct {
	ProductID uint `json:"id"`
	Quantity  int  `json:"quantity"`
}

// Context is the data carried between turns. Zero-valued fields are absent
// from the serialized form, which is what MergeContext keys off.
type Context struct {
	Action           string     `json:"action,omitempty"`
	SelectedProducts []CartLine `json:"selectedProducts,omitempty"`
	Total            float64    `json:"total,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	OrderID          string     `json:"orderId,omitempty"`
	OrderNumber      string     `json:"orderNumber,omitempty"`
}

func (c Context) IsEmpty() bool {
	return c.Action == "" && len(c.SelectedProducts) == 0 && c.Total == 0 &&
		c.Notes == "" && c.OrderID == "" && c.OrderNumber == ""
}

// State is what the store returns for a user.
type State struct {
	Current         StateName `json:"currentState"`
	Context         Context   `json:"context"`
	LastInteraction time.Time `json:"lastInteraction"`
}

// Initial is the state of a user the store has never seen.
func Initial() State {
	return State{Current: StateInitial}
}

// Merge overlays the keys present in patch onto c, one level deep.
func (c Context) Merge(patch Context) (Context, error) {
	base := map[string]json.RawMessage{}
	if err := overlay(base, c); err != nil {
		return Context{}, err
	}
	if err := overlay(base, patch); err != nil {
		return Context{}, err
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return Context{}, err
	}
	var out Context
	if err := json.Unmarshal(raw, &out); err != nil {
		return Context{}, fmt.Errorf("failed to decode merged context: %w", err)
	}
	return out, nil
}

func overlay(dst map[string]json.RawMessage, c Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		dst[k] = v
	}
	return nil
}

func encodeContext(c Context) ([]byte, error) {
	return json.Marshal(c)
}

func decodeContext(raw []byte) (Context, error) {
	var c Context
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Context{}, fmt.Errorf("corrupt conversation context: %w", err)
	}
	return c, nil
}
