package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/llm"
)

// contextTurns bounds how much history reaches the classifier prompt.
const contextTurns = 3

const classifierPrompt = `Eres un asistente que identifica la intención de los mensajes de usuarios en una ferretería.

Intenciones posibles:
- greeting: Saludos iniciales (hola, buenos días, etc.)
- faq_product: Preguntas sobre características de productos
- faq_service: Preguntas sobre servicios (entrega, pagos, garantías)
- faq_schedule: Preguntas sobre horarios de atención
- product_inquiry: Consulta de productos disponibles o búsqueda
- request_quote: Solicitud de cotización
- place_order: Quiere realizar un pedido
- confirm_order: Confirma un pedido
- cancel_order: Cancela un pedido
- check_order_status: Consulta estado de pedido
- goodbye: Despedida
- unknown: No está claro

Responde SOLO con un objeto JSON con la intención y un nivel de confianza (0.0 a 1.0):
{"intent": "nombre_intención", "confidence": 0.95}`

// Classifier asks the LLM for an intent and falls back to keyword rules when
// the call fails or returns anything outside the contract.
type Classifier struct {
	provider llm.LLMProvider
	rules    []Rule
	timeout  time.Duration
}

// NewClassifier builds a classifier. A nil provider means rules only.
func NewClassifier(provider llm.LLMProvider, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{provider: provider, rules: DefaultRules, timeout: timeout}
}

// Identify never fails; errors from the model are logged and the fallback answers.
func (c *Classifier) Identify(ctx context.Context, message string, recent []llm.Message) Result {
	res, err := c.Classify(ctx, message, recent)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Intent classifier failed, using keyword fallback")
		return Fallback(message, c.rules)
	}
	return res
}

// Classify calls the model. Every failure is wrapped in ErrClassifierUnavailable.
func (c *Classifier) Classify(ctx context.Context, message string, recent []llm.Message) (Result, error) {
	if c.provider == nil {
		return Result{}, fmt.Errorf("%w: no provider configured", ErrClassifierUnavailable)
	}
	if len(recent) > contextTurns {
		recent = recent[len(recent)-contextTurns:]
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.provider.GenerateResponse(ctx, llm.Request{
		SystemPrompt: classifierPrompt,
		History:      recent,
		UserMessage:  message,
		Temperature:  0.3,
		MaxTokens:    100,
		JSONMode:     true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	res, err := parseResult(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	log.Debug().Str("intent", string(res.Intent)).Float64("confidence", res.Confidence).Msg("🧭 Intent identified")
	return res, nil
}

func parseResult(raw string) (Result, error) {
	var out struct {
		Intent     string   `json:"intent"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return Result{}, fmt.Errorf("malformed classifier response %q: %w", raw, err)
	}

	in := Intent(strings.ToLower(strings.TrimSpace(out.Intent)))
	if !in.Valid() {
		return Result{}, fmt.Errorf("unknown intent label %q", out.Intent)
	}
	if out.Confidence == nil || *out.Confidence < 0 || *out.Confidence > 1 {
		return Result{}, fmt.Errorf("confidence missing or out of range in %q", raw)
	}
	return Result{Intent: in, Confidence: *out.Confidence}, nil
}

// stripFences removes a ```json ... ``` wrapper some models add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
