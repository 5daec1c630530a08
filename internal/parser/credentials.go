package parser

import (
	"fmt"
	"os"
	"strings"
)

// CredentialsWikiURL documents how to obtain adapter credentials.
const CredentialsWikiURL = "https://github.com/couchcryptid/grid-ingest/wiki/Source-credentials"

// Token returns the non-empty value of the environment variable name.
func Token(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set, see %s", ErrMissingCredential, name, CredentialsWikiURL)
	}
	return v, nil
}
