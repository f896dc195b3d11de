package intent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/llm"
)

// Contact holds whatever delivery details a message carried. Empty fields were not found.
type Contact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

var (
	// Peruvian mobile numbers: nine digits starting with 9, optional +51 prefix.
	phonePattern  = regexp.MustCompile(`(?:\+?51[\s-]?)?(9\d{2})[\s-]?(\d{3})[\s-]?(\d{3})`)
	MobilePattern = regexp.MustCompile(`^9\d{8}$`)

	streetPattern  = regexp.MustCompile(`(?i)\b(?:av|avenida|calle|jr|jir[oó]n|psje|pasaje|mz|manzana|lote|urb|urbanizaci[oó]n|car|carretera)\b`)
	addressPattern = regexp.MustCompile(streetPattern.String() + `|\d`)
	namePattern    = regexp.MustCompile(`^[\p{L}][\p{L}\s.'-]+$`)
)

const contactPrompt = `Extrae los datos de contacto del mensaje del usuario de una ferretería en Perú.

Responde SOLO con un objeto JSON:
{"name": "nombre completo o vacío", "phone": "celular de 9 dígitos o vacío", "address": "dirección de entrega o vacío"}`

// ContactExtractor pulls name/phone/address out of free text.
type ContactExtractor struct {
	provider llm.LLMProvider
	timeout  time.Duration
}

// NewContactExtractor builds an extractor. A nil provider means line parsing only.
func NewContactExtractor(provider llm.LLMProvider, timeout time.Duration) *ContactExtractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ContactExtractor{provider: provider, timeout: timeout}
}

// ExtractContact merges the model's answer over the local parse; the local
// parse fills any field the model left empty or got malformed.
func (e *ContactExtractor) ExtractContact(ctx context.Context, message string) Contact {
	local := ParseContact(message)
	if e.provider == nil {
		return local
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.provider.GenerateResponse(ctx, llm.Request{
		SystemPrompt: contactPrompt,
		UserMessage:  message,
		Temperature:  0.2,
		MaxTokens:    200,
		JSONMode:     true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Contact extraction failed, using line parser")
		return local
	}

	var remote Contact
	if err := json.Unmarshal([]byte(stripFences(raw)), &remote); err != nil {
		log.Warn().Err(err).Msg("⚠️ Malformed contact extraction response")
		return local
	}

	out := local
	if name := strings.TrimSpace(remote.Name); name != "" {
		out.Name = name
	}
	if phone := NormalizePhone(remote.Phone); phone != "" {
		out.Phone = phone
	}
	if addr := strings.TrimSpace(remote.Address); addr != "" {
		out.Address = addr
	}
	return out
}

// ParseContact reads the "name / phone / address" layout customers are asked
// for, one per line or comma separated.
func ParseContact(message string) Contact {
	parts := strings.Split(strings.TrimSpace(message), "\n")
	if len(parts) == 1 {
		parts = strings.Split(parts[0], ",")
	}

	var c Contact
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimLeft(p, "•-* "))
		if p == "" {
			continue
		}

		if c.Phone == "" {
			if phone := NormalizePhone(p); phone != "" {
				c.Phone = phone
				rest := strings.TrimSpace(phonePattern.ReplaceAllString(p, ""))
				if rest == "" || strings.EqualFold(rest, "cel") || strings.EqualFold(rest, "celular") {
					continue
				}
				p = rest
			}
		}

		switch {
		case c.Address == "" && addressPattern.MatchString(p):
			c.Address = p
		case c.Name == "" && namePattern.MatchString(p) && len(strings.Fields(p)) <= 5:
			c.Name = p
		}
	}
	return c
}

// HasStreetAddress reports whether s names a street, block or lot. A bare
// number is not enough: "fierro de 1/2" is a product.
func HasStreetAddress(s string) bool {
	return streetPattern.MatchString(s)
}

// NormalizePhone returns the bare nine-digit mobile number in s, or "".
func NormalizePhone(s string) string {
	m := phonePattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	phone := m[1] + m[2] + m[3]
	if !MobilePattern.MatchString(phone) {
		return ""
	}
	return phone
}
