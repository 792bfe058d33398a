package platform

import (
	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether s is a well-formed identifier as produced by NewID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
