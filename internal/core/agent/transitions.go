package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/conversation"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/intent"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/utils"
)

const (
	faqThreshold     float32 = 0.65
	unknownThreshold float32 = 0.6

	// usabilityFloor is the confidence below which a classified intent is
	// treated as unknown.
	usabilityFloor = 0.5

	maxCards    = 3
	searchLimit = 5
)

var orderNumberPattern = regexp.MustCompile(`(?i)\bORD-\d{8}-\d{3}\b`)

// Turn is the input of one transition.
type Turn struct {
	User   *models.User
	State  conversation.State
	Intent intent.Result
	// Text is the customer's message; empty for postbacks.
	Text    string
	Payload string
	// AddProductID is set for ADD_PRODUCT_<id> postbacks.
	AddProductID uint
}

func (t Turn) postback() bool { return t.Payload != "" }

// Decide selects and runs the transition for t. Every state/intent pair
// yields exactly one Outcome; pairs without a dedicated branch fall through
// to the unknown-intent branch.
func (e *Engine) Decide(ctx context.Context, t Turn) Outcome {
	if t.AddProductID != 0 {
		return e.addProduct(ctx, t)
	}

	if !t.postback() {
		switch t.State.Current {
		case conversation.StateCollectingUserData:
			if !escapesContact(t.Intent.Intent) {
				if out, ok := e.collectContact(ctx, t); ok {
					return out
				}
			}
		case conversation.StateAwaitingProducts:
			if !escapesProductList(t.Intent.Intent) {
				if lines := intent.ParseProductLines(t.Text); len(lines) > 0 {
					return e.addProductLines(ctx, t, lines)
				}
			}
		}
		if t.Intent.Confidence < usabilityFloor {
			return e.unknown(ctx, t)
		}
	}

	switch in := t.Intent.Intent; {
	case in == intent.Greeting:
		return reset(withButtons(greetingText(t.User), menuButtons...))
	case in.IsFAQ():
		return e.faq(ctx, t)
	case in == intent.ProductInquiry:
		return e.productInquiry(ctx, t)
	case in == intent.RequestQuote:
		return set(conversation.StateAwaitingProducts, conversation.Context{Action: conversation.ActionQuote}, text(msgQuotePrompt))
	case in == intent.PlaceOrder:
		return e.placeOrder(ctx, t)
	case in == intent.ConfirmOrder:
		return e.confirmOrder(ctx, t)
	case in == intent.CancelOrder:
		return reset(text(msgCancelled))
	case in == intent.Goodbye:
		return reset(text(msgGoodbye))
	case in == intent.CheckOrderStatus:
		return e.checkOrderStatus(ctx, t)
	default:
		return e.unknown(ctx, t)
	}
}

func escapesContact(in intent.Intent) bool {
	return in == intent.Greeting || in == intent.CancelOrder || in == intent.Goodbye
}

// answersContactPrompt reports whether a message classified as in can be a
// reply to the contact prompt. Anything else is a question or request of its own.
func answersContactPrompt(in intent.Intent) bool {
	return in == intent.Unknown || in == intent.ConfirmOrder
}

func escapesProductList(in intent.Intent) bool {
	return escapesContact(in) || in == intent.ConfirmOrder || in == intent.CheckOrderStatus
}

func (e *Engine) faq(ctx context.Context, t Turn) Outcome {
	if strings.TrimSpace(t.Text) == "" {
		return keep(text(msgFAQPrompt))
	}
	ans := e.answers.GetBestAnswer(ctx, t.Text, faqThreshold)
	if !ans.Found {
		return keep(text(msgFAQNotFound))
	}
	return keep(text(ans.Answer), withQuickReplies(msgMoreHelp, moreHelpReplies...))
}

func (e *Engine) unknown(ctx context.Context, t Turn) Outcome {
	if strings.TrimSpace(t.Text) != "" {
		if ans := e.answers.GetBestAnswer(ctx, t.Text, unknownThreshold); ans.Found {
			return keep(text(ans.Answer))
		}
	}
	return keep(text(msgUnknown))
}

func (e *Engine) productInquiry(ctx context.Context, t Turn) Outcome {
	term := strings.TrimSpace(t.Text)
	if t.postback() || term == "" {
		return e.listCategories(ctx)
	}

	products, err := e.findProducts(ctx, term)
	if err != nil {
		log.Error().Err(err).Str("term", term).Msg("❌ Product search failed")
		return keep(text(msgApology))
	}
	if len(products) == 0 {
		replies := []Reply{text(msgProductsNotFound)}
		if cats, err := e.products.Categories(ctx); err == nil && len(cats) > 0 {
			replies = append(replies, text(bulletList("Categorías disponibles:", cats, "")))
		}
		return keep(replies...)
	}

	shown := products
	if len(shown) > maxCards {
		shown = shown[:maxCards]
	}
	cards := make([]channel.Card, 0, len(shown))
	for _, p := range shown {
		cards = append(cards, productCard(p))
	}

	replies := []Reply{{Cards: cards}}
	if len(products) > maxCards {
		replies = append(replies, text(fmt.Sprintf("Encontré %d productos. Te muestro los primeros %d. ¿Quieres ver más?", len(products), maxCards)))
	}
	return keep(replies...)
}

func (e *Engine) listCategories(ctx context.Context) Outcome {
	cats, err := e.products.Categories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to load categories")
		return keep(text(msgApology))
	}
	if len(cats) == 0 {
		return keep(text(msgProductsNotFound))
	}
	return keep(text(bulletList("Nuestras categorías:\n", cats, "¿Qué categoría te interesa?")))
}

var searchStopwords = map[string]bool{
	"quiero": true, "quisiera": true, "tienen": true, "tiene": true, "tienes": true,
	"busco": true, "buscando": true, "necesito": true, "precio": true, "precios": true,
	"cuanto": true, "cuánto": true, "cuesta": true, "cuestan": true, "venden": true,
	"para": true, "como": true, "cómo": true, "sobre": true, "producto": true,
	"productos": true, "información": true, "informacion": true, "favor": true,
	"comprar": true, "algún": true, "algun": true, "alguna": true, "stock": true,
	"disponible": true, "hola": true, "este": true, "esta": true, "unos": true, "unas": true,
}

// findProducts tries a category name, then the whole message, then each
// meaningful keyword of it.
func (e *Engine) findProducts(ctx context.Context, term string) ([]models.Product, error) {
	normalized := strings.ToLower(strings.TrimFunc(term, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }))

	if cats, err := e.products.Categories(ctx); err == nil {
		for _, c := range cats {
			if strings.ToLower(c) == normalized {
				return e.products.GetByCategory(ctx, c, searchLimit)
			}
		}
	}

	products, err := e.products.Search(ctx, term, searchLimit)
	if err != nil || len(products) > 0 {
		return products, err
	}

	seen := map[uint]bool{}
	for _, kw := range keywords(normalized) {
		found, err := e.products.Search(ctx, kw, searchLimit)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if !seen[p.ID] && len(products) < searchLimit {
				seen[p.ID] = true
				products = append(products, p)
			}
		}
	}
	return products, nil
}

func keywords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if len([]rune(w)) >= 4 && !searchStopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

func addToCart(cart []conversation.CartLine, id uint, qty int) []conversation.CartLine {
	out := append([]conversation.CartLine(nil), cart...)
	for i := range out {
		if out[i].ProductID == id {
			out[i].Quantity += qty
			return out
		}
	}
	return append(out, conversation.CartLine{ProductID: id, Quantity: qty})
}

func (e *Engine) addProduct(ctx context.Context, t Turn) Outcome {
	p, err := e.products.GetByID(ctx, t.AddProductID)
	if err != nil {
		log.Warn().Err(err).Uint("product_id", t.AddProductID).Msg("⚠️ Product for cart not found")
		return keep(text(msgProductNotFound))
	}
	if !p.IsAvailable() {
		return keep(text(fmt.Sprintf("Lo siento, %s no tiene stock disponible en este momento.", p.Name)))
	}

	cart := addToCart(t.State.Context.SelectedProducts, p.ID, 1)
	return merge(conversation.Context{SelectedProducts: cart},
		text(fmt.Sprintf("✅ %s agregado a tu pedido.\n\n¿Quieres agregar más productos o proceder con el pedido?", p.Name)),
		withQuickReplies(msgCartOptions, cartReplies...),
	)
}

// addProductLines resolves "name x qty" lines against the catalogue while
// the user is listing products for a quote or an order.
func (e *Engine) addProductLines(ctx context.Context, t Turn, lines []intent.ProductLine) Outcome {
	cart := t.State.Context.SelectedProducts
	var missing []string
	added := 0
	for _, l := range lines {
		found, err := e.products.Search(ctx, l.Term, 1)
		if err != nil || len(found) == 0 || !found[0].IsAvailable() {
			missing = append(missing, l.Term)
			continue
		}
		cart = addToCart(cart, found[0].ID, l.Quantity)
		added++
	}

	if added == 0 {
		return keep(text(bulletList("No encontré estos productos:", missing, "Revisa el nombre o escribe \"ver productos\" para ver las categorías.")))
	}

	priced, total, _, err := e.priceCart(ctx, cart)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to price cart")
		return keep(text(msgApology))
	}

	c := t.State.Context
	c.SelectedProducts = cart
	c.Total = total
	if c.Action == "" {
		c.Action = conversation.ActionOrder
	}

	var replies []Reply
	if c.Action == conversation.ActionQuote {
		replies = append(replies, withButtons(quoteText(priced, total),
			channel.Button{Type: channel.ButtonPostback, Title: "💰 Hacer Pedido", Payload: channel.PayloadPlaceOrder}))
	} else {
		replies = append(replies, withQuickReplies(cartText(priced, total), cartReplies...))
	}
	if len(missing) > 0 {
		replies = append(replies, text(bulletList("No encontré:", missing, "")))
	}
	return set(conversation.StateAwaitingProducts, c, replies...)
}

// priceCart looks up every cart line. Lines whose product vanished are
// dropped and reported through the third return value.
func (e *Engine) priceCart(ctx context.Context, cart []conversation.CartLine) ([]summaryLine, float64, []conversation.CartLine, error) {
	ids := make([]uint, 0, len(cart))
	for _, l := range cart {
		ids = append(ids, l.ProductID)
	}
	products, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		lines []summaryLine
		kept  []conversation.CartLine
		total float64
	)
	for _, l := range cart {
		p, ok := byID[l.ProductID]
		if !ok {
			log.Warn().Err(errs.ErrDataInconsistency).Uint("product_id", l.ProductID).Msg("⚠️ Cart references a missing product")
			continue
		}
		sub := utils.RoundMoney(p.Price * float64(l.Quantity))
		total += sub
		lines = append(lines, summaryLine{product: p, quantity: l.Quantity, subtotal: sub})
		kept = append(kept, l)
	}
	return lines, utils.RoundMoney(total), kept, nil
}

func (e *Engine) placeOrder(ctx context.Context, t Turn) Outcome {
	if len(t.State.Context.SelectedProducts) == 0 {
		return set(conversation.StateAwaitingProducts, conversation.Context{Action: conversation.ActionOrder}, text(msgOrderPrompt))
	}
	return e.showSummary(ctx, t)
}

func (e *Engine) showSummary(ctx context.Context, t Turn) Outcome {
	lines, total, kept, err := e.priceCart(ctx, t.State.Context.SelectedProducts)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to price cart")
		return keep(text(msgApology))
	}
	if len(lines) == 0 {
		return set(conversation.StateAwaitingProducts, conversation.Context{Action: conversation.ActionOrder}, text(msgEmptyCart), text(msgOrderPrompt))
	}

	var replies []Reply
	if len(kept) < len(t.State.Context.SelectedProducts) {
		replies = append(replies, text("No encontré uno de los productos seleccionados; lo quité de tu pedido."))
	}

	c := t.State.Context
	c.SelectedProducts = kept
	c.Total = total
	replies = append(replies, text(orderSummaryText(lines, total)), withQuickReplies(msgConfirmQuestion, confirmReplies...))
	return set(conversation.StateAwaitingConfirmation, c, replies...)
}

func (e *Engine) confirmOrder(ctx context.Context, t Turn) Outcome {
	if t.State.Current != conversation.StateAwaitingConfirmation {
		log.Debug().Err(errs.ErrInvalidState).Str("state", string(t.State.Current)).Msg("confirm outside awaiting_confirmation")
		return keep(text(msgNothingPending))
	}
	if !t.User.HasDeliveryData() {
		return set(conversation.StateCollectingUserData, t.State.Context, text(msgContactPrompt))
	}
	return e.createOrder(ctx, t.User, t.State.Context)
}

// createOrder places the cart as an order. Failures leave the conversation in
// awaiting_confirmation so the customer can retry.
func (e *Engine) createOrder(ctx context.Context, user *models.User, c conversation.Context) Outcome {
	if len(c.SelectedProducts) == 0 {
		return reset(text(msgEmptyCart))
	}

	in := models.CreateOrderInput{
		UserID:          user.ID,
		DeliveryAddress: user.Address,
		DeliveryPhone:   user.Phone,
		Notes:           c.Notes,
	}
	for _, l := range c.SelectedProducts {
		in.Items = append(in.Items, models.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	order, err := e.orders.Create(ctx, in)
	switch {
	case err == nil:
		log.Info().Str("order", order.OrderNumber).Str("user_id", user.ID.String()).Msg("🛒 Order created")
		return set(conversation.StateOrderConfirmed,
			conversation.Context{OrderID: order.ID.String(), OrderNumber: order.OrderNumber},
			text(orderConfirmedText(order)))
	case errors.Is(err, errs.ErrInsufficientStock):
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("⚠️ Order rejected")
		return set(conversation.StateAwaitingConfirmation, c, text(msgInsufficientStock), withQuickReplies(msgConfirmQuestion, confirmReplies...))
	case errors.Is(err, errs.ErrProductNotFound):
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("⚠️ Order rejected")
		return set(conversation.StateAwaitingConfirmation, c, text(msgProductGone))
	default:
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("❌ Failed to create order")
		return set(conversation.StateAwaitingConfirmation, c, text(msgOrderFailed))
	}
}

// collectContact reads delivery data while in collecting_user_data. ok is false
// when the message is a classified request carrying no phone or street address;
// the caller then runs it through the regular intent table.
func (e *Engine) collectContact(ctx context.Context, t Turn) (Outcome, bool) {
	contact := e.contacts.ExtractContact(ctx, t.Text)
	if t.Intent.Confidence >= usabilityFloor && !answersContactPrompt(t.Intent.Intent) {
		// "que horario tienen" is a question, not a name.
		contact.Name = ""
		if contact.Phone == "" && !intent.HasStreetAddress(contact.Address) {
			return Outcome{}, false
		}
	}
	data := models.ContactData{FullName: contact.Name, Phone: contact.Phone, Address: contact.Address}

	user := t.User
	if data != (models.ContactData{}) {
		updated, err := e.users.UpdateContact(ctx, user.ID, data)
		if err != nil {
			log.Error().Err(err).Str("user_id", user.ID.String()).Msg("❌ Failed to save contact data")
			return keep(text(msgApology)), true
		}
		user = updated
	}

	if user.HasDeliveryData() {
		return e.createOrder(ctx, user, t.State.Context), true
	}

	var missing []string
	if user.Phone == "" {
		missing = append(missing, "tu número de celular")
	}
	if user.Address == "" {
		missing = append(missing, "tu dirección de entrega")
	}
	return keep(text(missingContactText(missing))), true
}

func (e *Engine) checkOrderStatus(ctx context.Context, t Turn) Outcome {
	if number := orderNumberPattern.FindString(t.Text); number != "" {
		number = strings.ToUpper(number)
		order, err := e.orders.GetByOrderNumber(ctx, number)
		if err != nil || order.UserID != t.User.ID {
			return keep(text(fmt.Sprintf("No encontré el pedido %s. Verifica el número e intenta de nuevo.", number)))
		}
		return keep(text(orderStatusText(order)))
	}

	orders, err := e.orders.ListByUser(ctx, t.User.ID, 1)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to list orders")
		return keep(text(msgApology))
	}
	if len(orders) == 0 {
		return keep(text(msgNoOrders))
	}
	return keep(text(orderStatusText(&orders[0])))
}
