package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallback(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
		conf    float64
	}{
		{"hola", Greeting, 0.8},
		{"¡Buenas tardes!", Greeting, 0.8},
		{"quiero hacer un pedido", PlaceOrder, 0.7},
		{"¿Cuál es el horario?", FAQSchedule, 0.7},
		{"¿a qué hora abren?", FAQSchedule, 0.7},
		{"¿cuánto cuesta el cemento?", RequestQuote, 0.7},
		{"¿hacen delivery a San Isidro?", FAQService, 0.7},
		{"¿tienen fierro de 1/2?", ProductInquiry, 0.6},
		{"sí, confirmo", ConfirmOrder, 0.6},
		{"ok", ConfirmOrder, 0.6},
		{"cancelar pedido", CancelOrder, 0.6},
		{"no", CancelOrder, 0.6},
		{"muchas gracias", Goodbye, 0.7},
		{"estado de mi pedido ORD-20241015-123", CheckOrderStatus, 0.7},
		{"busco cemento", ProductInquiry, 0.6},
		{"necesito clavos de 2 pulgadas", ProductInquiry, 0.6},
		{"quisiera pintura blanca", ProductInquiry, 0.6},
		{"quisiera hacer un pedido", PlaceOrder, 0.7},
		{"necesito saber el horario", FAQSchedule, 0.7},
		{"me pueden ayudar", Unknown, 0.3},
		{"ahora mismo", Unknown, 0.3},
		{"", Unknown, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := Fallback(tt.message, DefaultRules)
			assert.Equal(t, tt.want, got.Intent)
			assert.Equal(t, tt.conf, got.Confidence)
		})
	}
}

func TestDefaultRulesAreValid(t *testing.T) {
	for _, r := range DefaultRules {
		assert.True(t, r.Intent.Valid(), r.Intent)
		assert.GreaterOrEqual(t, r.Confidence, 0.6)
		assert.LessOrEqual(t, r.Confidence, 0.8)
	}
}
