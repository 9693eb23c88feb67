package secrets

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidInput = errors.New("secret value is required and must be a string")
	ErrInvalidKey   = errors.New("invalid key")
	ErrNotFound     = errors.New("secret not found")
)
