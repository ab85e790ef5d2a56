package app

import "errors"

var (
	ErrListNotFound        = errors.New("shopping list not found")
	ErrEmptyMessage        = errors.New("empty message")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEntryNotFound       = errors.New("history entry not found")
	ErrMissingItem         = errors.New("category or item name missing")
	ErrInvalidAmount       = errors.New("amount out of range")
)
