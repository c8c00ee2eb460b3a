package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Principal is the caller identity extracted from a verified access token.
type Principal struct {
	Subject  string
	Username string
	Roles    []string
}

// HasRole reports whether role is among the principal's realm roles.
// An empty role is always satisfied.
func (p *Principal) HasRole(role string) bool {
	if role == "" {
		return true
	}
	return slices.Contains(p.Roles, role)
}

// accessClaims is the part of a Keycloak access token the verifier reads.
type accessClaims struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (c accessClaims) principal() *Principal {
	roles := slices.Clone(c.RealmAccess.Roles)
	slices.Sort(roles)
	return &Principal{
		Subject:  c.Subject,
		Username: c.PreferredUsername,
		Roles:    slices.Compact(roles),
	}
}

// Verifier checks realm-issued access tokens against the realm JWKS.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the realm issuer and prepares signature verification.
// Keycloak access tokens are audienced to "account" by default, so the
// client ID check is skipped; issuer, expiry and signature are enforced.
func NewVerifier(ctx context.Context, cfg Config, httpClient *http.Client) (*Verifier, error) {
	if cfg.BaseURL == "" || cfg.Realm == "" {
		return nil, errors.New("keycloak: verifier needs base url and realm")
	}
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, IssuerURL(cfg.BaseURL, cfg.Realm))
	if err != nil {
		return nil, fmt.Errorf("keycloak: discover realm %q: %w", cfg.Realm, err)
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
	}, nil
}

// Verify validates the raw token and returns its principal.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	if raw == "" {
		return nil, errors.New("keycloak: token is empty")
	}
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("keycloak: verify token: %w", err)
	}
	var claims accessClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("keycloak: decode claims: %w", err)
	}
	return claims.principal(), nil
}

// ParseBearer extracts the token from the standard Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("keycloak: missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("keycloak: invalid Authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("keycloak: empty bearer token")
	}
	return token, nil
}
