package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "scanbo/pkg/domain-errors"
)

// MaxAccountIDLen bounds the byte length of an account identifier.
const MaxAccountIDLen = 128

// AccountID is the opaque identity of an authenticated caller. It is supplied
// by the authentication collaborator (the token subject) and is only ever used
// as a map key; its internal structure (SS58 address, hex public key, UUID)
// is not interpreted.
//
// Invariant: non-empty, valid UTF-8, at most MaxAccountIDLen bytes, no
// whitespace or control characters. Construct via ParseAccountID at trust
// boundaries; direct casting bypasses validation.
type AccountID string

// ParseAccountID validates external input and returns an AccountID.
//
// Errors: returns CodeInvalidInput for empty, oversized, non-UTF-8 input or
// input containing whitespace/control characters.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	if len(s) > MaxAccountIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id must be valid UTF-8")
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id contains invalid characters")
	}
	return AccountID(s), nil
}

// String returns the string representation of the account id.
func (a AccountID) String() string {
	return string(a)
}

// IsNil returns true if the account id is empty.
func (a AccountID) IsNil() bool {
	return a == ""
}
