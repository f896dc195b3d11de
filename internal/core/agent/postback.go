package agent

import (
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/intent"
)

var postbackIntents = map[string]intent.Intent{
	channel.PayloadGetStarted:   intent.Greeting,
	channel.PayloadViewProducts: intent.ProductInquiry,
	channel.PayloadAddMore:      intent.ProductInquiry,
	channel.PayloadPlaceOrder:   intent.PlaceOrder,
	channel.PayloadViewSummary:  intent.PlaceOrder,
	channel.PayloadFAQ:          intent.FAQService,
	channel.PayloadAskAgain:     intent.FAQService,
	channel.PayloadConfirmOrder: intent.ConfirmOrder,
	channel.PayloadCancelOrder:  intent.CancelOrder,
}

// mapPostback turns a button payload into a synthetic intent with full
// confidence. ADD_PRODUCT_<id> carries the product id instead.
func mapPostback(payload string) (intent.Result, uint) {
	if id, ok := channel.ParseAddProduct(payload); ok {
		return intent.Result{Intent: intent.PlaceOrder, Confidence: 1}, id
	}
	if in, ok := postbackIntents[payload]; ok {
		return intent.Result{Intent: in, Confidence: 1}, 0
	}
	return intent.Result{Intent: intent.Unknown, Confidence: 1}, 0
}
