// Package identity answers one question: is there an authenticated
// identity on this device right now, and which one. Sign-in and
// sign-out themselves happen elsewhere.
package identity

import (
	"context"

	"github.com/openmeet/favsync/internal/api"
)

// Identity is an authenticated user as far as this subsystem cares.
type Identity struct {
	ID   string
	Name string
}

// Provider reports the current identity. A nil Identity with a nil
// error means the visitor is anonymous.
type Provider interface {
	Current(ctx context.Context) (*Identity, error)
}

// APIProvider resolves the identity from the session endpoint.
type APIProvider struct {
	client *api.Client
}

// NewAPIProvider creates a provider backed by the favorites service.
func NewAPIProvider(client *api.Client) *APIProvider {
	return &APIProvider{client: client}
}

// Current fetches the session and maps it to an identity.
func (p *APIProvider) Current(ctx context.Context) (*Identity, error) {
	session, err := p.client.Session(ctx)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated {
		return nil, nil
	}
	return &Identity{ID: session.UserID, Name: session.Name}, nil
}

// Static always reports the same identity. Useful in tests and for the
// anonymous case (a nil Static reports anonymous).
type Static struct {
	Identity *Identity
}

// Current returns the fixed identity.
func (s *Static) Current(_ context.Context) (*Identity, error) {
	return s.Identity, nil
}
