package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// SubjectVerifier is the external `verify(bearer) -> subject_id`
// collaborator spec.md treats as out-of-scope for the core store: it
// resolves an Authorization header's bearer token to an OIDC
// provider+subject pair, without the dispatcher ever importing an OIDC
// library directly: a single method returning the resolved pair or an
// error.
type SubjectVerifier interface {
	// Verify resolves bearer (the token portion of an Authorization:
	// Bearer <token> header, without the scheme prefix) to the provider
	// name it was configured for and the token's subject claim.
	Verify(ctx context.Context, bearer string) (provider, subject string, err error)
}

// BearerToken extracts the token from an HTTP Authorization header of the
// form "Bearer <token>", or ok=false if the header is absent or malformed.
func BearerToken(req *http.Request) (token string, ok bool) {
	h := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}

// OIDCVerifier implements SubjectVerifier against a single OIDC provider,
// discovered once at construction via its issuer's well-known document.
type OIDCVerifier struct {
	providerName string
	audience     string
	verifier     *oidc.IDTokenVerifier
}

// NewOIDCVerifier performs OIDC discovery against issuerURL and returns a
// SubjectVerifier that checks tokens are issued by it for audience.
func NewOIDCVerifier(ctx context.Context, providerName, issuerURL, audience string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc discovery against %s: %w", issuerURL, err)
	}
	return &OIDCVerifier{
		providerName: providerName,
		audience:     audience,
		verifier:     provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

// Verify validates bearer as an ID token issued by this provider and
// returns its subject claim.
func (v *OIDCVerifier) Verify(ctx context.Context, bearer string) (string, string, error) {
	idToken, err := v.verifier.Verify(ctx, bearer)
	if err != nil {
		return "", "", fmt.Errorf("auth: invalid bearer token: %w", err)
	}
	return v.providerName, idToken.Subject, nil
}
