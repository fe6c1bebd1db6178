//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseUserID checks parsing never panics and always returns either a
// valid ID or an error.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err == nil {
			roundTrip, err2 := ParseUserID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseMonth checks month parsing round-trips.
func FuzzParseMonth(f *testing.F) {
	f.Add("2024-02")
	f.Add("1999-12")
	f.Add("2024-13")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		m, err := ParseMonth(input)
		if err != nil {
			return
		}
		again, err := ParseMonth(m.String())
		if err != nil || again != m {
			t.Errorf("month %q did not round-trip", input)
		}
	})
}
