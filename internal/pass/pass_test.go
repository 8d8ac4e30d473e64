package pass

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := Payload{
		VisitID:        42,
		Visitor:        "vera",
		PrisonerNumber: "P-1001",
		VisitDate:      "2026-09-15",
		Facility:       "Central Facility",
	}

	out, err := Decode(in.Encode())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecode_IgnoresUnknownLines(t *testing.T) {
	text := "Visit ID: 7\nVisitor: vera\nSignature: abc123\nnot a key-value line\nFacility: Central"
	p, err := Decode(text)
	if err != nil {
		t.Fatal(err)
	}
	if p.VisitID != 7 || p.Visitor != "vera" || p.Facility != "Central" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"missing visit id", "Visitor: vera\nFacility: Central"},
		{"garbage visit id", "Visit ID: not-a-number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.text); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestEncode_HumanReadable(t *testing.T) {
	text := Payload{VisitID: 9, Visitor: "vera", PrisonerNumber: "P-1001", VisitDate: "2026-09-15", Facility: "Central"}.Encode()
	for _, want := range []string{"Visit ID: 9", "Visitor: vera", "Prisoner: P-1001", "Date: 2026-09-15", "Facility: Central"} {
		if !strings.Contains(text, want) {
			t.Fatalf("encoded pass missing %q:\n%s", want, text)
		}
	}
}

func TestPNG(t *testing.T) {
	png, err := Payload{VisitID: 1, Visitor: "vera", VisitDate: "2026-09-15"}.PNG()
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG image")
	}
}
