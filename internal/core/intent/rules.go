package intent

import (
	"regexp"
	"strings"
)

// Rule is one row of the keyword fallback table.
type Rule struct {
	Pattern    *regexp.Regexp
	Intent     Intent
	Confidence float64
}

// word matches any of alts as a whole word, so "si" does not fire inside "necesito".
func word(alts string) string {
	return `(?:^|[^\p{L}\p{N}])(?:` + alts + `)(?:$|[^\p{L}\p{N}])`
}

func rule(pattern string, in Intent, confidence float64) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Intent: in, Confidence: confidence}
}

// DefaultRules is evaluated top to bottom against the lowercased message; first match wins.
var DefaultRules = []Rule{
	rule(`^(?:hola|buenos|buenas|hey|saludos)`, Greeting, 0.8),
	rule(`estado (?:de|del) (?:mi )?pedido|seguimiento|ord-\d{8}|d[oó]nde est[aá] mi pedido`, CheckOrderStatus, 0.7),
	rule(`cancel|anular`, CancelOrder, 0.6),
	rule(`confirm`, ConfirmOrder, 0.6),
	rule(`cotiza|cotización|precio|costo|cu[aá]nto.*cuesta|valor`, RequestQuote, 0.7),
	rule(`pedido|comprar|ordenar|quiero.*llevar`, PlaceOrder, 0.7),
	rule(`horario|`+word(`hora|horas`)+`|cu[aá]ndo.*abre|cu[aá]ndo.*cierra|atiend`, FAQSchedule, 0.7),
	rule(`entrega|env[ií]o|delivery|pago|transferencia|yape|plin`, FAQService, 0.7),
	rule(`producto|tienes|tienen|`+word(`hay|busco|buscando|necesito|quisiera`)+`|stock|disponible|venden`, ProductInquiry, 0.6),
	rule(word(`sí|si|ok|dale|correcto`), ConfirmOrder, 0.6),
	rule(word(`no|negativo`)+`|mejor.*no`, CancelOrder, 0.6),
	rule(`chao|adiós|adios|gracias|hasta`, Goodbye, 0.7),
}

// Fallback classifies message with rules. Nothing matching yields unknown at 0.3.
func Fallback(message string, rules []Rule) Result {
	lower := strings.TrimLeft(strings.ToLower(strings.TrimSpace(message)), "¡¿!?. ")
	for _, r := range rules {
		if r.Pattern.MatchString(lower) {
			return Result{Intent: r.Intent, Confidence: r.Confidence}
		}
	}
	return Result{Intent: Unknown, Confidence: 0.3}
}
