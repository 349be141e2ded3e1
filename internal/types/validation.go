package types

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// KeyValidationConfig contains configuration for operation-name validation.
type KeyValidationConfig struct {
	MaxLength         int
	AllowEmpty        bool
	AllowControlChars bool
	AllowWhitespace   bool
}

// DefaultKeyValidationConfig returns a KeyValidationConfig with default values.
func DefaultKeyValidationConfig() KeyValidationConfig {
	return KeyValidationConfig{
		MaxLength:         512,
		AllowEmpty:        false,
		AllowControlChars: false,
		AllowWhitespace:   false,
	}
}

// KeyValidator validates operation names before they become cache keys.
// A malformed operation is a programmer error and is the only condition
// under which the public fetch contract surfaces a non-data error.
type KeyValidator struct {
	config KeyValidationConfig
}

// NewKeyValidator creates a new KeyValidator with the given configuration.
func NewKeyValidator(config KeyValidationConfig) *KeyValidator {
	return &KeyValidator{config: config}
}

// Validate checks an operation name against the configured rules.
func (v *KeyValidator) Validate(operation string) error {
	if operation == "" {
		if !v.config.AllowEmpty {
			return fmt.Errorf("%w: operation cannot be empty", ErrInvalidKey)
		}
		return nil
	}

	if v.config.MaxLength > 0 && len(operation) > v.config.MaxLength {
		return fmt.Errorf("%w: operation length %d exceeds maximum %d bytes",
			ErrInvalidKey, len(operation), v.config.MaxLength)
	}

	if !utf8.ValidString(operation) {
		return fmt.Errorf("%w: operation contains invalid UTF-8", ErrInvalidKey)
	}

	for i, r := range operation {
		if !v.config.AllowControlChars && (r < 32 || r == 127) {
			return fmt.Errorf("%w: operation contains control character at position %d", ErrInvalidKey, i)
		}
		if !v.config.AllowWhitespace && unicode.IsSpace(r) {
			return fmt.Errorf("%w: operation contains whitespace at position %d", ErrInvalidKey, i)
		}
	}

	return nil
}
