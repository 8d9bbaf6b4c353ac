package gateway

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvUserID is the environment variable holding the backend user id.
const EnvUserID = "GWLENS_USER_ID"

// ErrNoCredentials indicates no user id could be found.
var ErrNoCredentials = errors.New("gateway: no user id configured")

// CredentialProvider supplies the identity sent with every request.
type CredentialProvider interface {
	UserID(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

// UserID implements CredentialProvider.
func (f CredentialFunc) UserID(ctx context.Context) (string, error) { return f(ctx) }

// StaticCredentials always returns the same user id.
type StaticCredentials string

// UserID implements CredentialProvider.
func (s StaticCredentials) UserID(context.Context) (string, error) {
	id := strings.TrimSpace(string(s))
	if id == "" {
		return "", ErrNoCredentials
	}
	return id, nil
}

// EnvCredentials reads EnvUserID from the process environment, falling back
// to the given .env files. Files that do not exist are skipped.
type EnvCredentials struct {
	Files []string
}

// UserID implements CredentialProvider.
func (e EnvCredentials) UserID(context.Context) (string, error) {
	if id := strings.TrimSpace(os.Getenv(EnvUserID)); id != "" {
		return id, nil
	}
	for _, path := range e.Files {
		vals, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(vals[EnvUserID]); id != "" {
			return id, nil
		}
	}
	return "", ErrNoCredentials
}

// Chain returns the first user id any provider yields.
type Chain []CredentialProvider

// UserID implements CredentialProvider.
func (c Chain) UserID(ctx context.Context) (string, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		id, err := p.UserID(ctx)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrNoCredentials) {
			return "", err
		}
	}
	return "", ErrNoCredentials
}
