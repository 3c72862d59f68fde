package services

import (
	"log"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order; first success wins. Day comes before
// month in the slash formats, matching the upstream tracker firmware.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"02/01/2006 15:04:05.000",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a heterogeneous timestamp representation into a
// concrete instant. Unparseable values fall back to now, which makes them
// sort as most recent; callers tolerate this known skew.
func ParseTimestamp(value string, now time.Time) time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return now
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}

	// Numeric epoch, seconds or milliseconds.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n)
		}
		if n > 0 {
			return time.Unix(n, 0)
		}
	}

	log.Printf("Unparseable timestamp %q, falling back to current time", value)
	return now
}

// NormalizeTimestamp handles the loosely typed timestamp values that arrive
// in raw log records: native times pass through, strings and epoch numbers
// go through ParseTimestamp, anything else falls back to now.
func NormalizeTimestamp(value interface{}, now time.Time) time.Time {
	switch v := value.(type) {
	case time.Time:
		if !v.IsZero() {
			return v
		}
		return now
	case string:
		return ParseTimestamp(v, now)
	case float64:
		if v > 1e12 {
			return time.UnixMilli(int64(v))
		}
		if v > 0 {
			return time.Unix(int64(v), 0)
		}
		return now
	case int64:
		return NormalizeTimestamp(float64(v), now)
	case nil:
		return now
	default:
		log.Printf("Unsupported timestamp type %T, falling back to current time", value)
		return now
	}
}
