package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh surrogate key for headers.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s looks like a surrogate key produced by New.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// FormatHeaderKey returns a voucher key like "CD-000042".
func FormatHeaderKey(typ string, folio int) string {
	return fmt.Sprintf("%s-%06d", strings.ToUpper(typ), folio)
}

// ParseHeaderKey parses "CD-000042" into type and folio.
// The type may itself contain dashes; the folio is everything after the last one.
func ParseHeaderKey(key string) (typ string, folio int, err error) {
	i := strings.LastIndexByte(key, '-')
	if i <= 0 || i == len(key)-1 {
		return "", 0, fmt.Errorf("invalid header key format: %q", key)
	}

	folio, err = strconv.Atoi(key[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid folio in header key %q: %w", key, err)
	}
	if folio <= 0 {
		return "", 0, fmt.Errorf("invalid folio in header key %q: must be positive", key)
	}
	return key[:i], folio, nil
}
