package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/dispatch"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
)

type recordingRunner struct {
	mu  sync.Mutex
	got []channel.Inbound
}

func (r *recordingRunner) HandleInbound(_ context.Context, in channel.Inbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
	return nil
}

// inlineDispatcher runs every batch before Submit returns.
type inlineDispatcher struct {
	stopped bool
	batches int
}

func (d *inlineDispatcher) Submit(_ string, tasks []dispatch.Task) bool {
	if d.stopped {
		return false
	}
	d.batches++
	for _, t := range tasks {
		_ = t(context.Background())
	}
	return true
}

type fakeKB struct {
	docs          []kb.Document
	lastThreshold float32
	err           error
}

func (f *fakeKB) AddDocument(_ context.Context, doc kb.Document) error {
	if f.err != nil {
		return f.err
	}
	for _, d := range f.docs {
		if d.ID == doc.ID {
			return fmt.Errorf("%w: %q", kb.ErrDuplicateDocument, doc.ID)
		}
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeKB) GetBestAnswer(_ context.Context, question string, threshold float32) kb.Answer {
	f.lastThreshold = threshold
	if strings.Contains(question, "delivery") {
		return kb.Answer{Found: true, Answer: "Sí, hacemos delivery.", Confidence: 0.91, Source: "faq_004"}
	}
	return kb.Answer{Confidence: 0.2}
}

func (f *fakeKB) Count() int { return len(f.docs) }

type staticChannels []string

func (s staticChannels) Channels() []string { return append([]string(nil), s...) }

type testApp struct {
	app        *fiber.App
	runner     *recordingRunner
	dispatcher *inlineDispatcher
	kb         *fakeKB
}

const (
	testVerifyToken = "verify-me"
	testAppSecret   = "app-secret"
	testAdminKey    = "admin-key"
)

func newTestApp(t *testing.T, mutate func(*Routes)) *testApp {
	t.Helper()
	ta := &testApp{
		app:        fiber.New(),
		runner:     &recordingRunner{},
		dispatcher: &inlineDispatcher{},
		kb:         &fakeKB{},
	}
	r := Routes{
		Webhook:   NewWebhookHandler(testVerifyToken, ta.runner, ta.dispatcher),
		Health:    NewHealthHandler("hnsw", ta.kb, staticChannels{"whatsapp", "messenger"}),
		KB:        NewKBHandler(ta.kb),
		AppSecret: testAppSecret,
		AdminKey:  testAdminKey,
		RateLimit: 1000,
	}
	if mutate != nil {
		mutate(&r)
	}
	Register(ta.app, r)
	return ta
}

func (ta *testApp) do(t *testing.T, req *http.Request) (int, string) {
	t.Helper()
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func signedPost(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, "sha256="+hex.EncodeToString(Sign(testAppSecret, []byte(body))))
	return req
}

func TestVerifyWebhook(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"matching token", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444", http.StatusOK, "1158201444"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=1", http.StatusForbidden, ""},
		{"missing token", "hub.mode=subscribe&hub.challenge=1", http.StatusBadRequest, ""},
		{"missing everything", "", http.StatusBadRequest, ""},
	}

	ta := newTestApp(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			assert.Equal(t, tt.status, status)
			if tt.body != "" {
				assert.Equal(t, tt.body, body)
			}
		})
	}
}

func TestReceiveWebhook(t *testing.T) {
	const batch = `{
		"object": "page",
		"entry": [
			{"id": "1", "time": 1, "messaging": [{"sender": {"id": "psid-text"}, "recipient": {"id": "page"}, "message": {"mid": "m1", "text": "hola"}}]},
			{"id": "1", "time": 2, "messaging": [{"sender": {"id": "psid-quick"}, "recipient": {"id": "page"}, "message": {"mid": "m2", "text": "Ver resumen", "quick_reply": {"payload": "VIEW_SUMMARY"}}}]},
			{"id": "1", "time": 3, "messaging": [{"sender": {"id": "psid-button"}, "recipient": {"id": "page"}, "postback": {"mid": "m3", "title": "Agregar a pedido", "payload": "ADD_PRODUCT_3"}}]},
			{"id": "1", "time": 4, "messaging": [{"sender": {"id": "page"}, "recipient": {"id": "psid-text"}, "message": {"mid": "m4", "text": "respuesta", "is_echo": true}}]},
			{"id": "1", "time": 5, "messaging": [{"sender": {"id": "psid-read"}, "recipient": {"id": "page"}}]},
			{"id": "1", "time": 6, "messaging": []}
		]
	}`

	ta := newTestApp(t, nil)
	status, body := ta.do(t, signedPost(batch))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "EVENT_RECEIVED", body)
	assert.Equal(t, 1, ta.dispatcher.batches)
	assert.Equal(t, []channel.Inbound{
		{Channel: channel.Messenger, SenderID: "psid-text", MessageID: "m1", Text: "hola"},
		{Channel: channel.Messenger, SenderID: "psid-quick", MessageID: "m2", Payload: "VIEW_SUMMARY"},
		{Channel: channel.Messenger, SenderID: "psid-button", MessageID: "m3", Payload: "ADD_PRODUCT_3"},
	}, ta.runner.got)
}

func TestReceiveWebhookRejects(t *testing.T) {
	ta := newTestApp(t, nil)

	status, _ := ta.do(t, signedPost(`{"object":"instagram","entry":[]}`))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ta.do(t, signedPost(`{"object":`))
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Empty(t, ta.runner.got)
}

func TestReceiveWebhookAfterStop(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.dispatcher.stopped = true

	status, body := ta.do(t, signedPost(`{"object":"page","entry":[{"messaging":[{"sender":{"id":"psid-1"},"message":{"text":"hola"}}]}]}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "EVENT_RECEIVED", body)
	assert.Empty(t, ta.runner.got)
}

func TestWebhookSignature(t *testing.T) {
	const body = `{"object":"page","entry":[]}`
	ta := newTestApp(t, nil)

	unsigned := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	unsigned.Header.Set("Content-Type", "application/json")
	status, _ := ta.do(t, unsigned)
	assert.Equal(t, http.StatusUnauthorized, status)

	forged := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	forged.Header.Set("Content-Type", "application/json")
	forged.Header.Set(signatureHeader, "sha256="+hex.EncodeToString(Sign("other-secret", []byte(body))))
	status, _ = ta.do(t, forged)
	assert.Equal(t, http.StatusForbidden, status)

	malformed := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	malformed.Header.Set("Content-Type", "application/json")
	malformed.Header.Set(signatureHeader, "md5=zz")
	status, _ = ta.do(t, malformed)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ta.do(t, signedPost(body))
	assert.Equal(t, http.StatusOK, status)
}

func TestWebhookWithoutSecretSkipsSignature(t *testing.T) {
	ta := newTestApp(t, func(r *Routes) { r.AppSecret = "" })

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"page","entry":[]}`))
	req.Header.Set("Content-Type", "application/json")
	status, _ := ta.do(t, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestWebhookRateLimit(t *testing.T) {
	ta := newTestApp(t, func(r *Routes) { r.RateLimit = 2 })

	verify := "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=ok"
	for i := 0; i < 2; i++ {
		status, _ := ta.do(t, httptest.NewRequest(http.MethodGet, verify, nil))
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := ta.do(t, httptest.NewRequest(http.MethodGet, verify, nil))
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, status, "health is not rate limited")
}

func TestGetHealth(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.kb.docs = []kb.Document{{ID: "faq_001"}, {ID: "faq_002"}}

	status, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, status)

	var got HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, HealthResponse{
		Status:        "ok",
		Service:       "retail-chatbot",
		VectorBackend: "hnsw",
		Documents:     2,
		Channels:      []string{"messenger", "whatsapp"},
	}, got)
}

func adminRequest(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(adminKeyHeader, key)
	}
	return req
}

func TestAddDocument(t *testing.T) {
	const doc = `{"id":"faq_021","text":"¿Venden cerámicos?","category":"productos","answer":"Sí, tenemos cerámicos."}`

	tests := []struct {
		name   string
		key    string
		body   string
		status int
	}{
		{"missing key", "", doc, http.StatusUnauthorized},
		{"wrong key", "guess", doc, http.StatusUnauthorized},
		{"created", testAdminKey, doc, http.StatusCreated},
		{"duplicate", testAdminKey, doc, http.StatusConflict},
		{"missing answer", testAdminKey, `{"id":"faq_022","text":"¿Algo?"}`, http.StatusBadRequest},
		{"malformed", testAdminKey, `{"id":`, http.StatusBadRequest},
	}

	ta := newTestApp(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := ta.do(t, adminRequest("/knowledge-base/documents", tt.key, tt.body))
			assert.Equal(t, tt.status, status)
		})
	}
	require.Len(t, ta.kb.docs, 1)
	assert.Equal(t, "Sí, tenemos cerámicos.", ta.kb.docs[0].Answer)
}

func TestAddDocumentBackendFailure(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.kb.err = fmt.Errorf("failed to embed document: timeout")

	status, _ := ta.do(t, adminRequest("/knowledge-base/documents", testAdminKey,
		`{"id":"faq_030","text":"¿Abren feriados?","answer":"Sí, de 9 a 1."}`))
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	ta := newTestApp(t, func(r *Routes) { r.AdminKey = "" })
	status, _ := ta.do(t, adminRequest("/knowledge-base/ask", "anything", `{"question":"¿hacen delivery?"}`))
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAsk(t *testing.T) {
	ta := newTestApp(t, nil)

	status, body := ta.do(t, adminRequest("/knowledge-base/ask", testAdminKey, `{"question":"¿hacen delivery?"}`))
	require.Equal(t, http.StatusOK, status)
	var got kb.Answer
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.True(t, got.Found)
	assert.Equal(t, "faq_004", got.Source)
	assert.Equal(t, kb.DefaultThreshold, ta.kb.lastThreshold)

	status, _ = ta.do(t, adminRequest("/knowledge-base/ask", testAdminKey, `{"question":"¿marcas?","threshold":0.5}`))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float32(0.5), ta.kb.lastThreshold)

	status, _ = ta.do(t, adminRequest("/knowledge-base/ask", testAdminKey, `{"question":"¿marcas?","threshold":1.5}`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ta.do(t, adminRequest("/knowledge-base/ask", testAdminKey, `{}`))
	assert.Equal(t, http.StatusBadRequest, status)
}
