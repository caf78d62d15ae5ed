package domain

import "errors"

// ErrDuplicateKey is returned by stores when a unique key already exists
// (idempotency key or transaction reference).
var ErrDuplicateKey = errors.New("duplicate key")
