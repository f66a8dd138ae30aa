package models

import (
	"bytes"
	"errors"
	"time"

	id "scanbo/pkg/domain"
)

// Domain rejections of a registration. Services wrap them in coded errors;
// errors.Is keeps working through the wrap.
var (
	// ErrAlreadyRegistered: the account already has a hospital record.
	ErrAlreadyRegistered = errors.New("hospital already registered")
	// ErrTooLong: a field exceeds the configured maximum length.
	ErrTooLong = errors.New("maximum length exceeded")
)

// BoundedBytes is a byte string whose length was checked against a bound
// when it was built. The zero value is an empty string.
type BoundedBytes struct {
	b []byte
}

// NewBoundedBytes copies b after checking len(b) <= max. Oversized input is
// rejected with ErrTooLong, never truncated. Nil input becomes empty content.
func NewBoundedBytes(b []byte, max uint32) (BoundedBytes, error) {
	if uint64(len(b)) > uint64(max) {
		return BoundedBytes{}, ErrTooLong
	}
	return BoundedBytes{b: nonNilCopy(b)}, nil
}

// RestoreBoundedBytes rebuilds a value read back from storage. The bound was
// enforced when the record was first written.
func RestoreBoundedBytes(b []byte) BoundedBytes {
	return BoundedBytes{b: nonNilCopy(b)}
}

// Bytes returns a copy of the content. It is never nil, so SQL drivers
// write an empty bytea rather than NULL.
func (v BoundedBytes) Bytes() []byte {
	return nonNilCopy(v.b)
}

func nonNilCopy(b []byte) []byte {
	return append([]byte{}, b...)
}

func (v BoundedBytes) String() string {
	return string(v.b)
}

func (v BoundedBytes) Len() int {
	return len(v.b)
}

func (v BoundedBytes) Equal(other BoundedBytes) bool {
	return bytes.Equal(v.b, other.b)
}

// Hospital is the record stored for one account.
//
// Invariants:
//   - Name and Location were each bounded by the registry's MaxLen at construction
//   - one Hospital per AccountID; it is never overwritten or deleted
type Hospital struct {
	AccountID    id.AccountID
	Name         BoundedBytes
	Location     BoundedBytes
	RegisteredAt time.Time
}

// NewHospital bounds name then location, so a too-long name is reported
// before location is looked at.
func NewHospital(accountID id.AccountID, name, location []byte, maxLen uint32, now time.Time) (*Hospital, error) {
	boundedName, err := NewBoundedBytes(name, maxLen)
	if err != nil {
		return nil, err
	}
	boundedLocation, err := NewBoundedBytes(location, maxLen)
	if err != nil {
		return nil, err
	}
	return &Hospital{
		AccountID:    accountID,
		Name:         boundedName,
		Location:     boundedLocation,
		RegisteredAt: now,
	}, nil
}

// HospitalRegistered is the notification produced after a successful registration.
type HospitalRegistered struct {
	AccountID    id.AccountID
	RegisteredAt time.Time
}
