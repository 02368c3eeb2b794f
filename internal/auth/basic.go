package auth

import (
	"encoding/base64"
	"strings"

	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
)

// Realm is sent in the WWW-Authenticate challenge on 401.
const Realm = "publish"

func Challenge() string {
	return `Basic realm="` + Realm + `"`
}

// ParseBasicAuth decodes an Authorization header value of the Basic scheme.
// The decoded value is split on the first ':' so passwords may contain colons.
func ParseBasicAuth(header string) (domain.Credentials, error) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return domain.Credentials{}, internal_errors.Unauthorized()
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return domain.Credentials{}, internal_errors.Unauthorized()
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return domain.Credentials{}, internal_errors.Unauthorized()
	}
	return domain.Credentials{Username: username, Password: password}, nil
}
