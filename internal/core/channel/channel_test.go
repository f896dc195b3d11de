package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddProduct(t *testing.T) {
	tests := []struct {
		payload string
		want    uint
		ok      bool
	}{
		{"ADD_PRODUCT_12", 12, true},
		{"ADD_PRODUCT_", 0, false},
		{"ADD_PRODUCT_12abc", 0, false},
		{"ADD_PRODUCT_-1", 0, false},
		{"CONFIRM_ORDER", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			id, ok := ParseAddProduct(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestParseWhatsAppText(t *testing.T) {
	tests := []struct {
		text string
		want Inbound
	}{
		{"agregar 7", Inbound{Channel: WhatsApp, SenderID: "51987", Payload: "ADD_PRODUCT_7"}},
		{"  Confirmar ", Inbound{Channel: WhatsApp, SenderID: "51987", Payload: "CONFIRM_ORDER"}},
		{"cancelar", Inbound{Channel: WhatsApp, SenderID: "51987", Payload: "CANCEL_ORDER"}},
		{"quiero cemento", Inbound{Channel: WhatsApp, SenderID: "51987", Text: "quiero cemento"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWhatsAppText("51987", tt.text))
		})
	}
}

func TestTextRendering(t *testing.T) {
	got := renderOptions("¿Confirmas tu pedido?", optionsFromButtons([]Button{
		{Title: "Confirmar", Payload: PayloadConfirmOrder},
		{Title: "Ver productos", Payload: PayloadViewProducts},
	}))
	assert.Equal(t, "¿Confirmas tu pedido?\n\n• Confirmar (escribe \"confirmar\")\n• Ver productos", got)

	cards := renderCards([]Card{{
		Title:    "Cemento Sol",
		Subtitle: "S/ 25.50",
		Buttons:  []Button{{Title: "Agregar a pedido", Payload: AddProductPayload(3)}},
	}})
	assert.Equal(t, "*Cemento Sol*\nS/ 25.50\n👉 Agregar a pedido: escribe \"agregar 3\"", cards)
}
