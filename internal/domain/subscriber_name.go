package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/itchan-dev/newsletter/internal/errors"
)

const MaxSubscriberNameLength = 256

const forbiddenNameChars = `/()"<>\{}`

type SubscriberName string

func (n SubscriberName) String() string {
	return string(n)
}

// ParseSubscriberName trims the input and rejects empty, overlong or unsafe names.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.Validation("Name is empty")
	}
	if utf8.RuneCountInString(name) > MaxSubscriberNameLength {
		return "", errors.Validation("Name is too long")
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(forbiddenNameChars, r) {
			return "", errors.Validation("Name contains forbidden characters")
		}
	}
	return SubscriberName(name), nil
}
