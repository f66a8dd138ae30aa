package sentinel

import "errors"

// Facts reported by stores and infrastructure adapters. Services translate
// them into coded domain errors; nothing above the service layer should
// branch on these directly.
//
//   - ErrNotFound: no record is stored under the key
//   - ErrAlreadyUsed: the key is already taken (insert-if-absent lost)
//   - ErrUnavailable: the backing system could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
