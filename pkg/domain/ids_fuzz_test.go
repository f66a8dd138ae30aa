//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseAccountID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseAccountID(f *testing.F) {
	f.Add("")
	f.Add("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")
	f.Add("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	f.Add("'; DROP TABLE hospitals;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseAccountID(input)
		if err != nil {
			return
		}
		roundTrip, err2 := ParseAccountID(id.String())
		if err2 != nil || roundTrip != id {
			t.Errorf("valid id failed round-trip: %v", err2)
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
		if len(input) > MaxAccountIDLen {
			t.Error("oversized input was accepted")
		}
	})
}
