package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/conversation"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/intent"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/llm"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/utils"
)

var errNotFound = errors.New("record not found")

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindOrCreate(_ context.Context, ch, ext string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]*models.User{}
	}
	key := ch + "|" + ext
	if u, ok := f.users[key]; ok {
		cp := *u
		return &cp, nil
	}
	u := &models.User{ID: uuid.New(), Channel: ch, ExternalID: ext}
	f.users[key] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateContact(_ context.Context, id uuid.UUID, d models.ContactData) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID != id {
			continue
		}
		if d.FullName != "" {
			u.FullName = d.FullName
		}
		if d.Phone != "" {
			u.Phone = d.Phone
		}
		if d.Address != "" {
			u.Address = d.Address
		}
		cp := *u
		return &cp, nil
	}
	return nil, errNotFound
}

type fakeProducts struct {
	items []models.Product
}

func (f *fakeProducts) Search(_ context.Context, term string, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.items {
		if strings.Contains(strings.ToLower(p.Name+" "+p.Description), strings.ToLower(term)) {
			out = append(out, p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id uint) (*models.Product, error) {
	for _, p := range f.items {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []uint) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.items {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByCategory(_ context.Context, category string, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.items {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Categories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range f.items {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

type fakeOrders struct {
	mu      sync.Mutex
	err     error
	created []models.CreateOrderInput
	orders  []models.Order
	catalog *fakeProducts
}

func (f *fakeOrders) Create(_ context.Context, in models.CreateOrderInput) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	order := models.Order{
		ID:              uuid.New(),
		UserID:          in.UserID,
		OrderNumber:     fmt.Sprintf("ORD-20261015-%03d", len(f.orders)+1),
		Status:          models.OrderStatusPending,
		DeliveryAddress: in.DeliveryAddress,
		DeliveryPhone:   in.DeliveryPhone,
	}
	for _, l := range in.Items {
		p, err := f.catalog.GetByID(context.Background(), l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: id %d", errs.ErrProductNotFound, l.ProductID)
		}
		order.TotalAmount += utils.RoundMoney(p.Price * float64(l.Quantity))
	}
	f.created = append(f.created, in)
	f.orders = append(f.orders, order)
	return &order, nil
}

func (f *fakeOrders) GetByOrderNumber(_ context.Context, number string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == number {
			cp := o
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeOrders) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	var out []models.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLog struct {
	mu   sync.Mutex
	msgs []models.Conversation
}

func (f *fakeLog) SaveMessage(_ context.Context, m *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f *fakeLog) RecentContext(context.Context, uuid.UUID, int) ([]llm.Message, error) {
	return nil, nil
}

// fakeAnswers answers every question with the same similarity.
type fakeAnswers struct {
	similarity float32
	answer     string
}

func (f *fakeAnswers) GetBestAnswer(_ context.Context, _ string, threshold float32) kb.Answer {
	if f.similarity < threshold {
		return kb.Answer{Confidence: f.similarity}
	}
	return kb.Answer{Found: true, Answer: f.answer, Confidence: f.similarity, Source: "faq_009"}
}

type panicClassifier struct{}

func (panicClassifier) Identify(context.Context, string, []llm.Message) intent.Result {
	panic("classifier exploded")
}

type sent struct {
	kind  string
	text  string
	reply interface{}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *recordingSender) record(kind, text string, reply interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{kind, text, reply})
	return s.err
}

func (s *recordingSender) SendText(_ context.Context, _ string, text string) error {
	return s.record("text", text, nil)
}

func (s *recordingSender) SendQuickReplies(_ context.Context, _ string, text string, r []channel.QuickReply) error {
	return s.record("quick_replies", text, r)
}

func (s *recordingSender) SendButtons(_ context.Context, _ string, text string, b []channel.Button) error {
	return s.record("buttons", text, b)
}

func (s *recordingSender) SendCards(_ context.Context, _ string, c []channel.Card) error {
	return s.record("cards", "", c)
}

func (s *recordingSender) SendTyping(context.Context, string, bool) error { return nil }
func (s *recordingSender) MarkSeen(context.Context, string) error         { return nil }
func (s *recordingSender) Channel() string                                { return channel.Messenger }
func (s *recordingSender) GetProviderName() string                        { return "recording" }

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent {
		if m.text != "" {
			out = append(out, m.text)
		}
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

var catalog = []models.Product{
	{ID: 1, Name: "Cemento Sol Tipo I", Description: "Bolsa de 42.5 kg", Category: "Construcción", Price: 25.50, Stock: 100, Unit: "bolsa", IsActive: true},
	{ID: 2, Name: "Fierro corrugado 1/2\"", Description: "Varilla de 9 m", Category: "Construcción", Price: 38.90, Stock: 50, Unit: "varilla", IsActive: true},
	{ID: 3, Name: "Pintura látex blanca", Description: "Galón para interiores", Category: "Pinturas", Price: 45.00, Stock: 20, Unit: "galón", IsActive: true},
	{ID: 4, Name: "Martillo de uña", Description: "Mango de fibra", Category: "Herramientas", Price: 29.90, Stock: 0, Unit: "unidad", IsActive: true},
	{ID: 5, Name: "Clavos de 2\"", Description: "Caja de 1 kg", Category: "Ferretería", Price: 8.50, Stock: 200, Unit: "caja", IsActive: true},
	{ID: 6, Name: "Clavos de 3\"", Description: "Caja de 1 kg", Category: "Ferretería", Price: 9.00, Stock: 200, Unit: "caja", IsActive: true},
	{ID: 7, Name: "Clavos de calamina", Description: "Caja de 1 kg", Category: "Ferretería", Price: 10.00, Stock: 150, Unit: "caja", IsActive: true},
	{ID: 8, Name: "Clavos para concreto", Description: "Caja de 1/2 kg", Category: "Ferretería", Price: 12.00, Stock: 80, Unit: "caja", IsActive: true},
}

type harness struct {
	engine   *Engine
	users    *fakeUsers
	products *fakeProducts
	orders   *fakeOrders
	log      *fakeLog
	states   *conversation.MemoryStore
	answers  *fakeAnswers
	sender   *recordingSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	products := &fakeProducts{items: catalog}
	h := &harness{
		users:    &fakeUsers{},
		products: products,
		orders:   &fakeOrders{catalog: products},
		log:      &fakeLog{},
		states:   conversation.NewMemoryStore(),
		answers:  &fakeAnswers{similarity: 0.2},
		sender:   &recordingSender{},
	}
	h.engine = NewEngine(Deps{
		Users:      h.users,
		Products:   h.products,
		Orders:     h.orders,
		Log:        h.log,
		States:     h.states,
		Classifier: intent.NewClassifier(nil, 0),
		Contacts:   intent.NewContactExtractor(nil, 0),
		Answers:    h.answers,
	})
	h.engine.RegisterSender(h.sender)
	return h
}

func (h *harness) say(t *testing.T, msg string) {
	t.Helper()
	if err := h.engine.HandleInbound(context.Background(), channel.Inbound{Channel: channel.Messenger, SenderID: "psid-1", Text: msg}); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
}

func (h *harness) press(t *testing.T, payload string) {
	t.Helper()
	if err := h.engine.HandleInbound(context.Background(), channel.Inbound{Channel: channel.Messenger, SenderID: "psid-1", Payload: payload}); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
}

func (h *harness) state(t *testing.T) conversation.State {
	t.Helper()
	u, err := h.users.FindOrCreate(context.Background(), channel.Messenger, "psid-1")
	if err != nil {
		t.Fatal(err)
	}
	st, err := h.states.Get(context.Background(), u.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func (h *harness) user(t *testing.T) *models.User {
	t.Helper()
	u, err := h.users.FindOrCreate(context.Background(), channel.Messenger, "psid-1")
	if err != nil {
		t.Fatal(err)
	}
	return u
}
