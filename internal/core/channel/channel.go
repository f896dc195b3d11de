// Package channel delivers replies to the messaging platforms a customer can
// reach the store through.
package channel

import (
	"context"
	"fmt"
	"strings"
)

const (
	Messenger = "messenger"
	WhatsApp  = "whatsapp"
)

// Postback payloads shared by every channel.
const (
	PayloadGetStarted    = "GET_STARTED"
	PayloadViewProducts  = "VIEW_PRODUCTS"
	PayloadAddMore       = "ADD_MORE"
	PayloadPlaceOrder    = "PLACE_ORDER"
	PayloadViewSummary   = "VIEW_SUMMARY"
	PayloadFAQ           = "FAQ"
	PayloadAskAgain      = "ASK_AGAIN"
	PayloadConfirmOrder  = "CONFIRM_ORDER"
	PayloadCancelOrder   = "CANCEL_ORDER"
	PayloadAddProductPfx = "ADD_PRODUCT_"
)

// AddProductPayload builds the postback that adds productID to the cart.
func AddProductPayload(productID uint) string {
	return fmt.Sprintf("%s%d", PayloadAddProductPfx, productID)
}

// ParseAddProduct extracts the product id from an ADD_PRODUCT_<id> payload.
func ParseAddProduct(payload string) (uint, bool) {
	rest, ok := strings.CutPrefix(payload, PayloadAddProductPfx)
	if !ok || rest == "" {
		return 0, false
	}
	var id uint
	if _, err := fmt.Sscanf(rest, "%d", &id); err != nil || fmt.Sprint(id) != rest {
		return 0, false
	}
	return id, true
}

type QuickReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

const (
	ButtonPostback = "postback"
	ButtonURL      = "web_url"
)

type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Card is one element of a product carousel.
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Sender delivers replies to one platform. Recipient ids are platform ids
// (Messenger PSID, WhatsApp phone number).
type Sender interface {
	SendText(ctx context.Context, recipient, text string) error
	SendQuickReplies(ctx context.Context, recipient, text string, replies []QuickReply) error
	SendButtons(ctx context.Context, recipient, text string, buttons []Button) error
	SendCards(ctx context.Context, recipient string, cards []Card) error
	SendTyping(ctx context.Context, recipient string, on bool) error
	MarkSeen(ctx context.Context, recipient string) error

	// Channel is the name users of this sender are registered under.
	Channel() string
	GetProviderName() string
}
