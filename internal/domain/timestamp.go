package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// backendLocalLayout is the zone-less LocalDateTime format the backend emits.
const backendLocalLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is a backend time value. Zone-less values are taken as UTC;
// unparseable values decode to the zero time instead of failing the payload.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses a backend time string.
func ParseTimestamp(value string) (Timestamp, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Timestamp{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return Timestamp{Time: t}, true
	}
	if t, err := time.ParseInLocation(backendLocalLayout, trimmed, time.UTC); err == nil {
		return Timestamp{Time: t}, true
	}
	return Timestamp{}, false
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = Timestamp{}
		return nil
	}
	parsed, _ := ParseTimestamp(raw)
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
