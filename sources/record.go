package sources

import (
	"strings"

	"pricehunter/models"
)

// Field helpers for RawRecord: stores disagree on key names, so every lookup
// takes the list of candidates in preference order.

func recordString(rec models.RawRecord, keys ...string) string {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// recordPrice coerces the record's price field (under any known key) into a
// canonical numeric value, or nil when absent or garbage.
func recordPrice(rec models.RawRecord, keys ...string) *float64 {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			if p := CoercePrice(v); p != nil {
				return p
			}
		}
	}
	return nil
}

// absoluteURL prefixes base when link is site-relative.
func absoluteURL(link, base string) string {
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	if strings.HasPrefix(link, "/") {
		return base + link
	}
	return link
}

// firstImage resolves the image field, which may be a string or an array of
// strings or {url: ...} objects.
func firstImage(rec models.RawRecord) string {
	if s := recordString(rec, "image", "image_url", "thumbnail"); s != "" {
		return s
	}
	if arr, ok := rec["images"].([]interface{}); ok && len(arr) > 0 {
		switch first := arr[0].(type) {
		case string:
			return first
		case map[string]interface{}:
			if u, ok := first["url"].(string); ok {
				return u
			}
		}
	}
	return ""
}
