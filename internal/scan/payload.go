// Package scan defines the payload encoded into a unit's QR label and the
// lenient decoding applied to raw scanner input.
package scan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the structured form of a scanned QR code. Bare unit codes are
// also accepted by scanners; Decode distinguishes the two.
type Payload struct {
	Studio int64 `json:"studio"`
	Item   int64 `json:"item"`
}

// Encode renders the QR payload for a unit label.
func Encode(studioID, unitID int64) (string, error) {
	b, err := json.Marshal(Payload{Studio: studioID, Item: unitID})
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(b), nil
}

// Decode attempts a structured parse of raw scanner input. ok is false when
// the input is not a well-formed payload, in which case callers treat the
// input as a literal unit code.
func Decode(raw string) (Payload, bool) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, false
	}
	if p.Item == 0 {
		return Payload{}, false
	}
	return p, true
}

// LooksStructured reports whether raw was probably meant as a structured
// payload, so the literal-code fallback can be logged rather than silent.
func LooksStructured(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "{")
}
