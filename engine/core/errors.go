package core

import (
	"errors"
)

var (
	ErrNotInitialized = errors.New("not initialized")
	ErrShuttingDown   = errors.New("shutting down, no new work accepted")
	ErrUnknown        = errors.New("unknown")
)
