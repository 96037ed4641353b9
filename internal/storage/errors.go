package storage

import "errors"

// ErrTooLarge is returned by the size writer when the limit is exceeded
var ErrTooLarge = errors.New("file is too large")
