package agent

import (
	"fmt"
	"strings"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/utils"
)

const storeName = "Ferretería El Constructor"

const (
	msgApology = "Disculpa, tuve un problema procesando tu mensaje. ¿Podrías intentar de nuevo?"

	msgFAQNotFound = "No tengo esa información exacta, pero puedo ayudarte con:\n\n" +
		"• Información de productos\n" +
		"• Horarios de atención\n" +
		"• Métodos de pago y entrega\n" +
		"• Realizar pedidos\n\n" +
		"¿Sobre qué te gustaría saber?"
	msgFAQPrompt = "¿Qué te gustaría saber? Puedo ayudarte con información sobre productos, servicios, horarios, etc."
	msgMoreHelp  = "¿Te puedo ayudar con algo más?"

	msgProductsNotFound = "No encontré productos con ese nombre. ¿Podrías ser más específico? O puedo mostrarte nuestras categorías disponibles."

	msgQuotePrompt = "¡Perfecto! Para cotizar, necesito que me digas qué productos te interesan.\n\n" +
		"Puedes escribir el nombre del producto o enviármelo en este formato:\n" +
		"• Cemento x 3\n" +
		"• Fierro 1/2\" x 5\n" +
		"• Pintura blanca x 2"
	msgOrderPrompt = "Para hacer un pedido, primero dime qué productos necesitas.\n\n" +
		"Ejemplo:\n" +
		"• Cemento x 3\n" +
		"• Clavos x 2\n" +
		"• Pintura blanca x 1"

	msgEmptyCart       = "No has seleccionado productos aún."
	msgConfirmQuestion = "Confirmar pedido:"
	msgNothingPending  = "No hay ningún pedido pendiente de confirmar. ¿Quieres hacer un pedido nuevo?"
	msgContactPrompt   = "Para confirmar tu pedido, necesito algunos datos:\n\n" +
		"Por favor envíame:\n" +
		"• Tu nombre completo\n" +
		"• Número de celular\n" +
		"• Dirección de entrega completa\n\n" +
		"Ejemplo:\n" +
		"Juan Pérez\n" +
		"987654321\n" +
		"Av. Principal 123, San Isidro"

	msgInsufficientStock = "Lo siento, no tenemos stock suficiente para uno de los productos de tu pedido. " +
		"Puedes intentar confirmar nuevamente o cancelar y armar un nuevo pedido."

	msgOrderFailed      = "Hubo un error al procesar tu pedido. Por favor intenta nuevamente o contáctanos directamente."
	msgProductGone      = "Uno de los productos de tu pedido ya no está disponible. Revisa tu pedido e intenta nuevamente."
	msgCancelled        = "Pedido cancelado. ¿Hay algo más en lo que pueda ayudarte?"
	msgGoodbye          = "¡Hasta pronto! Fue un gusto ayudarte. Estamos disponibles cuando nos necesites. 👋"
	msgProductNotFound  = "Producto no encontrado."
	msgNoOrders         = "Aún no tienes pedidos registrados. ¿Quieres hacer uno?"
	msgCartOptions      = "Opciones:"
	msgUnknown          = "No estoy seguro de entender. Puedo ayudarte con:\n\n" +
		"• Información de productos\n" +
		"• Realizar cotizaciones\n" +
		"• Hacer pedidos\n" +
		"• Horarios y servicios\n\n" +
		"¿Qué necesitas?"
)

var (
	menuButtons = []channel.Button{
		{Type: channel.ButtonPostback, Title: "🛠️ Ver Productos", Payload: channel.PayloadViewProducts},
		{Type: channel.ButtonPostback, Title: "💰 Hacer Pedido", Payload: channel.PayloadPlaceOrder},
		{Type: channel.ButtonPostback, Title: "❓ Preguntas Frecuentes", Payload: channel.PayloadFAQ},
	}
	moreHelpReplies = []channel.QuickReply{
		{Title: "Ver productos", Payload: channel.PayloadViewProducts},
		{Title: "Hacer pedido", Payload: channel.PayloadPlaceOrder},
		{Title: "Otra pregunta", Payload: channel.PayloadAskAgain},
	}
	confirmReplies = []channel.QuickReply{
		{Title: "✅ Sí, confirmar", Payload: channel.PayloadConfirmOrder},
		{Title: "❌ No, cancelar", Payload: channel.PayloadCancelOrder},
	}
	cartReplies = []channel.QuickReply{
		{Title: "Agregar más", Payload: channel.PayloadAddMore},
		{Title: "Ver resumen", Payload: channel.PayloadViewSummary},
		{Title: "Cancelar", Payload: channel.PayloadCancelOrder},
	}
)

var statusLabels = map[string]string{
	models.OrderStatusPending:    "Pendiente ⏳",
	models.OrderStatusConfirmed:  "Confirmado ✅",
	models.OrderStatusProcessing: "En preparación 📦",
	models.OrderStatusDelivered:  "Entregado 🚚",
	models.OrderStatusCancelled:  "Cancelado ❌",
}

func greetingText(u *models.User) string {
	name := ""
	if n := u.DisplayName(); n != "" {
		name = " " + n
	}
	return fmt.Sprintf("¡Hola%s! 👋 Bienvenido a %s.\n\n¿En qué puedo ayudarte hoy?", name, storeName)
}

func bulletList(title string, items []string, footer string) string {
	var b strings.Builder
	b.WriteString(title)
	for _, it := range items {
		b.WriteString("\n• ")
		b.WriteString(it)
	}
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(footer)
	}
	return b.String()
}

func productCard(p models.Product) channel.Card {
	return channel.Card{
		Title:    p.Name,
		Subtitle: fmt.Sprintf("%s - Stock: %d %s", utils.FormatPrice(p.Price), p.Stock, p.UnitLabel()),
		ImageURL: p.Image(),
		Buttons: []channel.Button{{
			Type:    channel.ButtonPostback,
			Title:   "Agregar a pedido",
			Payload: channel.AddProductPayload(p.ID),
		}},
	}
}

// summaryLine is one priced cart line.
type summaryLine struct {
	product  models.Product
	quantity int
	subtotal float64
}

func orderSummaryText(lines []summaryLine, total float64) string {
	var b strings.Builder
	b.WriteString("📋 *Resumen de tu pedido:*\n\n")
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l.product.Name)
		fmt.Fprintf(&b, "   Cantidad: %d %s\n", l.quantity, l.product.UnitLabel())
		fmt.Fprintf(&b, "   Precio: %s c/u\n", utils.FormatPrice(l.product.Price))
		fmt.Fprintf(&b, "   Subtotal: %s\n\n", utils.FormatPrice(l.subtotal))
	}
	fmt.Fprintf(&b, "💰 *Total: %s*\n\n", utils.FormatPrice(total))
	b.WriteString("¿Deseas confirmar este pedido?")
	return b.String()
}

func quoteText(lines []summaryLine, total float64) string {
	var b strings.Builder
	b.WriteString("🧾 *Cotización:*\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "\n• %s x %d = %s", l.product.Name, l.quantity, utils.FormatPrice(l.subtotal))
	}
	fmt.Fprintf(&b, "\n\n💰 *Total: %s*", utils.FormatPrice(total))
	b.WriteString("\n\nPrecios sujetos a stock disponible.")
	return b.String()
}

func cartText(lines []summaryLine, total float64) string {
	var b strings.Builder
	b.WriteString("🛒 *Tu pedido hasta ahora:*\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "\n• %s x %d %s", l.product.Name, l.quantity, l.product.UnitLabel())
	}
	fmt.Fprintf(&b, "\n\nTotal parcial: %s", utils.FormatPrice(total))
	return b.String()
}

func orderConfirmedText(o *models.Order) string {
	return fmt.Sprintf("✅ *¡Pedido confirmado!*\n\n"+
		"📦 Número de pedido: *%s*\n"+
		"💰 Total: %s\n\n"+
		"📍 Entrega en: %s\n"+
		"📞 Contacto: %s\n\n"+
		"Procesaremos tu pedido pronto. ¡Gracias por tu compra! 🎉",
		o.OrderNumber, utils.FormatPrice(o.TotalAmount), o.DeliveryAddress, o.DeliveryPhone)
}

func orderStatusText(o *models.Order) string {
	label, ok := statusLabels[o.Status]
	if !ok {
		label = o.Status
	}
	return fmt.Sprintf("📦 Pedido *%s*\nEstado: %s\nTotal: %s\nFecha: %s",
		o.OrderNumber, label, utils.FormatPrice(o.TotalAmount), o.CreatedAt.Format("02/01/2006"))
}

func missingContactText(missing []string) string {
	return "Aún me falta: " + strings.Join(missing, " y ") + ".\n\n" + msgContactPrompt
}
