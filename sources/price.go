package sources

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Price strings arrive in several regional formats: "1,234.50" (comma
// thousands), "1.234,50" (European), "3,199" (thousands only), "AED 99.90".
// ParsePrice normalizes them all to a plain float.
var (
	numberRunRegexp     = regexp.MustCompile(`[0-9][0-9.,\s]*`)
	commaThousandsRegex = regexp.MustCompile(`^[0-9]{1,3}(?:,[0-9]{3})+$`)
	dotThousandsRegex   = regexp.MustCompile(`^[0-9]{1,3}(?:\.[0-9]{3})+$`)
)

// ParsePrice extracts a numeric price from a currency-formatted string.
// Returns false when no usable number is present.
func ParsePrice(text string) (float64, bool) {
	run := numberRunRegexp.FindString(text)
	run = strings.Trim(strings.ReplaceAll(run, " ", ""), ".,")
	if run == "" {
		return 0, false
	}

	hasComma := strings.Contains(run, ",")
	hasDot := strings.Contains(run, ".")

	switch {
	case hasComma && hasDot:
		// The later separator is the decimal one; the other marks thousands.
		if strings.LastIndex(run, ".") > strings.LastIndex(run, ",") {
			run = strings.ReplaceAll(run, ",", "")
		} else {
			run = strings.ReplaceAll(run, ".", "")
			run = strings.ReplaceAll(run, ",", ".")
		}
	case hasComma:
		if commaThousandsRegex.MatchString(run) {
			run = strings.ReplaceAll(run, ",", "")
		} else {
			run = strings.ReplaceAll(run, ",", ".")
		}
	case hasDot:
		if dotThousandsRegex.MatchString(run) {
			run = strings.ReplaceAll(run, ".", "")
		}
	}

	value, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// priceObjectKeys are the nesting variants seen across store payloads,
// tried in order.
var priceObjectKeys = []string{"value", "selling_price", "price", "amount", "min", "current"}

// CoercePrice converts any raw price representation (number, formatted
// string, or nested object) into a canonical non-negative float. nil means
// "unavailable"; it is never collapsed to zero, and zero is a legitimate
// price only when the source says so explicitly.
func CoercePrice(v interface{}) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return validPrice(val)
	case float32:
		return validPrice(float64(val))
	case int:
		return validPrice(float64(val))
	case int64:
		return validPrice(float64(val))
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		if parsed, ok := ParsePrice(val); ok {
			return validPrice(parsed)
		}
		return nil
	case map[string]interface{}:
		for _, key := range priceObjectKeys {
			if inner, present := val[key]; present {
				if p := CoercePrice(inner); p != nil {
					return p
				}
			}
		}
		return nil
	default:
		return nil
	}
}

// validPrice rejects non-finite and negative values.
func validPrice(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}
