package model

import (
	"crypto/rand"
	"fmt"
)

// NewID returns a prefixed random identifier for records, sessions and
// strategies.
func NewID(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return fmt.Sprintf("%s-%x", prefix, b)
}
