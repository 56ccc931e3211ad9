package rebalancing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column is a canonical holdings field name
type Column string

// Canonical holdings columns
const (
	ColumnAssetID     Column = "asset_id"
	ColumnMarketValue Column = "market_value"
	ColumnReturnPct   Column = "return_pct"
	ColumnProfitLoss  Column = "profit_loss"
	ColumnAvgPrice    Column = "avg_price"
	ColumnLastPrice   Column = "last_price"
	ColumnQuantity    Column = "quantity"
)

// columnAliases maps folded raw header names to canonical columns.
// Keys are compared after foldHeader, so "PATRIMÔNIO ATUAL" and "Patrimonio_Atual"
// hit the same entry.
var columnAliases = map[string]Column{
	"ativo":        ColumnAssetID,
	"subcategoria": ColumnAssetID,
	"asset id":     ColumnAssetID,
	"asset":        ColumnAssetID,
	"ticker":       ColumnAssetID,

	"patrimonio atual": ColumnMarketValue,
	"market value":     ColumnMarketValue,
	"value":            ColumnMarketValue,

	"rentabilidade": ColumnReturnPct,
	"return pct":    ColumnReturnPct,
	"return":        ColumnReturnPct,

	"resultado":   ColumnProfitLoss,
	"profit loss": ColumnProfitLoss,
	"result":      ColumnProfitLoss,

	"preco medio": ColumnAvgPrice,
	"avg price":   ColumnAvgPrice,

	"preco atual": ColumnLastPrice,
	"last price":  ColumnLastPrice,
	"price":       ColumnLastPrice,

	"quantidade": ColumnQuantity,
	"quantity":   ColumnQuantity,
}

// LookupColumn maps a raw header to its canonical column.
// The boolean is false for headers the rebalancer does not use.
func LookupColumn(header string) (Column, bool) {
	col, ok := columnAliases[foldHeader(header)]
	return col, ok
}

// foldHeader lowercases, strips accents and collapses separators
func foldHeader(header string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, header)
	if err != nil {
		folded = header
	}
	folded = strings.ToLower(folded)
	folded = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// ParseNumber reads a raw cell as a float.
//
// Strings are parsed leniently: currency symbols, currency codes and spaces are
// ignored, both "1,234.56" and "1.234,56" are accepted, "(12)" is negative and a
// trailing "%" divides by 100. "e"/"E" is an exponent only between a digit and a
// digit or sign, so "EUR 100" reads as 100 and "1e3" as 1000.
//
// A lone separator is a decimal point ("2.500" is 2.5), except that a value
// carrying a currency marker reads a single "." followed by exactly three digits
// as a thousands separator ("R$ 2.500" is 2500).
// The boolean is false when nothing numeric could be read.
func ParseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		return parseNumberString(n.String())
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true
	case string:
		return parseNumberString(n)
	default:
		return parseNumberString(fmt.Sprint(n))
	}
}

func parseNumberString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSuffix(s, "%")
	}

	currency := hasCurrencyMarker(s)
	s = numericChars(s)
	s = normalizeSeparators(s, currency)
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}
	if negative {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, isFinite(f)
}

// numericChars keeps digits, separators and signs. An "e"/"E" survives only as
// an exponent marker, between a digit and a digit or sign.
func numericChars(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		switch {
		case isDigit(r), r == '.', r == ',', r == '-', r == '+':
			b.WriteRune(r)
		case r == 'e' || r == 'E':
			if i > 0 && isDigit(rs[i-1]) && i+1 < len(rs) &&
				(isDigit(rs[i+1]) || rs[i+1] == '-' || rs[i+1] == '+') {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// hasCurrencyMarker reports whether the text before the first digit or after the
// last one holds a currency symbol or letters, as in "R$ 10" or "10 EUR".
func hasCurrencyMarker(s string) bool {
	first := strings.IndexFunc(s, isDigit)
	if first < 0 {
		return false
	}
	last := strings.LastIndexFunc(s, isDigit)
	marker := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.Is(unicode.Sc, r)
	}
	return strings.IndexFunc(s[:first], marker) >= 0 || strings.IndexFunc(s[last+1:], marker) >= 0
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// normalizeSeparators rewrites thousands/decimal separators to plain "1234.56".
// The last separator seen is taken as the decimal point, except for a single
// "." followed by exactly three digits in a currency amount.
func normalizeSeparators(s string, currency bool) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	case currency && lastDot >= 0 && len(s)-lastDot-1 == 3:
		return strings.Replace(s, ".", "", 1)
	}
	return s
}

// assetIDString reads a raw identifier cell. Numbers are formatted without a
// trailing ".0" so a numeric fund code matches its configured string form.
func assetIDString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		if id == math.Trunc(id) && math.Abs(id) < 1e15 {
			return fmt.Sprintf("%d", int64(id))
		}
		return strings.TrimSpace(fmt.Sprint(id))
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
