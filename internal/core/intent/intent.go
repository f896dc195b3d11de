// Package intent maps customer messages onto the closed set of intents the
// dialogue engine understands, plus the small entity parsers it needs.
package intent

import (
	"fmt"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
)

type Intent string

const (
	Greeting         Intent = "greeting"
	FAQProduct       Intent = "faq_product"
	FAQService       Intent = "faq_service"
	FAQSchedule      Intent = "faq_schedule"
	ProductInquiry   Intent = "product_inquiry"
	RequestQuote     Intent = "request_quote"
	PlaceOrder       Intent = "place_order"
	ConfirmOrder     Intent = "confirm_order"
	CancelOrder      Intent = "cancel_order"
	CheckOrderStatus Intent = "check_order_status"
	Goodbye          Intent = "goodbye"
	Unknown          Intent = "unknown"
)

// All lists every intent in prompt order.
var All = []Intent{
	Greeting, FAQProduct, FAQService, FAQSchedule, ProductInquiry, RequestQuote,
	PlaceOrder, ConfirmOrder, CancelOrder, CheckOrderStatus, Goodbye, Unknown,
}

// ErrClassifierUnavailable wraps any failure of the external classifier.
var ErrClassifierUnavailable = fmt.Errorf("intent classifier: %w", errs.ErrExternalServiceUnavailable)

// Result is an intent with its confidence in [0,1].
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func (i Intent) Valid() bool {
	for _, known := range All {
		if i == known {
			return true
		}
	}
	return false
}

func (i Intent) IsFAQ() bool {
	return i == FAQProduct || i == FAQService || i == FAQSchedule
}
