package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// ProductLine is one "name x quantity" request from a product list message.
type ProductLine struct {
	Term     string
	Quantity int
}

var (
	trailingQty = regexp.MustCompile(`^(.+?)\s*(?:x|×|\*)\s*(\d{1,4})$`)
	leadingQty  = regexp.MustCompile(`^(\d{1,4})\s+(?:(?:unidades|unidad|bolsas|bolsa|galones|galón|kg|kilos|varillas)\s+(?:de\s+)?)?(.+)$`)
	bullet      = regexp.MustCompile(`^[•\-\*]\s*`)
)

// ParseProductLines reads messages such as "• Cemento x 3" or "2 bolsas de cemento".
// Lines without a recognisable quantity are ignored.
func ParseProductLines(message string) []ProductLine {
	var out []ProductLine
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(bullet.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}

		var term, qty string
		if m := trailingQty.FindStringSubmatch(line); m != nil {
			term, qty = m[1], m[2]
		} else if m := leadingQty.FindStringSubmatch(line); m != nil {
			qty, term = m[1], m[2]
		} else {
			continue
		}

		n, err := strconv.Atoi(qty)
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, ProductLine{Term: strings.TrimSpace(term), Quantity: n})
	}
	return out
}
