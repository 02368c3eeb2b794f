package domain

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/newsletter/internal/errors"
)

var emailValidator = validator.New()

type SubscriberEmail string

func (e SubscriberEmail) String() string {
	return string(e)
}

// ParseSubscriberEmail accepts local@domain addresses whose domain has at least one dot.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", errors.Validation("Email is empty")
	}
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return "", errors.Validation("Email must not contain whitespace")
	}

	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || domainPart == "" || strings.Contains(domainPart, "@") {
		return "", errors.Validation("Email is invalid")
	}
	if !strings.Contains(domainPart, ".") || strings.HasPrefix(domainPart, ".") || strings.HasSuffix(domainPart, ".") {
		return "", errors.Validation("Email domain is invalid")
	}
	if err := emailValidator.Var(email, "email"); err != nil {
		return "", errors.Validation("Email is invalid")
	}
	return SubscriberEmail(email), nil
}
