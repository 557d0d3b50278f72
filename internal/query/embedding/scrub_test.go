package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubber_Scrub(t *testing.T) {
	s := NewScrubber()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "tractor on rent in nashik", "tractor on rent in nashik"},
		{"email", "mail ramesh.k@example.co.in for details", "mail [REDACTED_EMAIL] for details"},
		{"indian mobile", "call 9876543210 today", "call [REDACTED_PHONE] today"},
		{"indian mobile with country code", "whatsapp +91-9876543210", "whatsapp [REDACTED_PHONE]"},
		{"aadhaar", "my aadhaar is 2345 6789 0123", "my aadhaar is [REDACTED_AADHAAR]"},
		{"pan any case", "pan abcde1234f attached", "pan [REDACTED_PAN] attached"},
		{"card before aadhaar", "card 4111 1111 1111 1111 expired", "card [REDACTED_CARD] expired"},
		{"short numbers kept", "need 2 tractors for 45 hp", "need 2 tractors for 45 hp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Scrub(tt.in))
		})
	}
}
