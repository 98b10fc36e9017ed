package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reUnsafe = regexp.MustCompile(`[<>:"/\\|?*#]`)

// SanitizeFilename makes an attachment name safe for storage: unsafe
// characters become underscores and the total length is capped at 100
// runes with the extension preserved.
func SanitizeFilename(filename string) string {
	cleaned := reUnsafe.ReplaceAllString(filename, "_")
	if len(cleaned) <= 100 {
		return cleaned
	}
	if dot := strings.LastIndex(cleaned, "."); dot > 0 {
		base := cleaned[:dot]
		ext := cleaned[dot+1:]
		if len(base) > 95 {
			base = base[:95]
		}
		return base + "." + ext
	}
	return cleaned[:100]
}

// CleanValue coerces an arbitrary decoded JSON scalar to its cell text.
// Nil becomes the empty string, numbers keep their decimal form, and
// strings are trimmed.
func CleanValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
