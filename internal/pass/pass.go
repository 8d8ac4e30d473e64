// Package pass renders the scannable credential attached to an approved
// visit. The payload is advisory: the gate always re-validates against the
// ledger by visit ID, and the plain key/value text doubles as a human-readable
// fallback when scanning fails.
package pass

import (
	"fmt"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

type Payload struct {
	VisitID        int64
	Visitor        string
	PrisonerNumber string
	VisitDate      string // YYYY-MM-DD
	Facility       string
}

// Encode renders the payload as newline-separated "key: value" lines.
func (p Payload) Encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Visit ID: %d\n", p.VisitID)
	fmt.Fprintf(&b, "Visitor: %s\n", p.Visitor)
	fmt.Fprintf(&b, "Prisoner: %s\n", p.PrisonerNumber)
	fmt.Fprintf(&b, "Date: %s\n", p.VisitDate)
	fmt.Fprintf(&b, "Facility: %s", p.Facility)
	return b.String()
}

// PNG renders the payload as a QR code image.
func (p Payload) PNG() ([]byte, error) {
	return qrcode.Encode(p.Encode(), qrcode.Medium, 256)
}

// Decode parses the key/value text back into a payload. Unknown keys are
// ignored so older passes keep scanning after fields are added.
func Decode(text string) (Payload, error) {
	var p Payload
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		switch key {
		case "Visit ID":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Payload{}, fmt.Errorf("invalid visit id %q: %w", value, err)
			}
			p.VisitID = id
		case "Visitor":
			p.Visitor = value
		case "Prisoner":
			p.PrisonerNumber = value
		case "Date":
			p.VisitDate = value
		case "Facility":
			p.Facility = value
		}
	}
	if p.VisitID == 0 {
		return Payload{}, fmt.Errorf("pass payload is missing a visit id")
	}
	return p, nil
}
