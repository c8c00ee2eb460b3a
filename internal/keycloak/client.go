package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// GrantTypeClientCredentials is the only admin grant the client supports.
const GrantTypeClientCredentials = "client_credentials"

// maxDrainBytes bounds how much of an admin response body is read before close.
const maxDrainBytes = 64 << 10

// Config describes how to reach a realm's admin API.
type Config struct {
	// BaseURL is the Keycloak server root, e.g. https://sso.example.com.
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	GrantType    string
	HTTPTimeout  time.Duration
}

// IssuerURL returns the OIDC issuer for realm on the server at baseURL.
func IssuerURL(baseURL, realm string) string {
	return strings.TrimSuffix(baseURL, "/") + "/realms/" + url.PathEscape(realm)
}

func (c Config) validate() error {
	if c.BaseURL == "" || c.Realm == "" || c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("keycloak: admin client config incomplete")
	}
	if !strings.HasPrefix(c.BaseURL, "http") {
		return fmt.Errorf("keycloak: invalid base url %q", c.BaseURL)
	}
	if c.GrantType != "" && c.GrantType != GrantTypeClientCredentials {
		return fmt.Errorf("keycloak: unsupported grant type %q", c.GrantType)
	}
	return nil
}

// ClientOption configures an AdminClient.
type ClientOption func(o *clientOptions)

type clientOptions struct {
	httpClient *http.Client
	tokenURL   string
}

// WithBaseHTTPClient sets the transport used for discovery, token and admin calls.
func WithBaseHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTokenURL skips OIDC discovery and uses the given token endpoint.
func WithTokenURL(tokenURL string) ClientOption {
	return func(o *clientOptions) {
		o.tokenURL = tokenURL
	}
}

// AdminClient calls the Keycloak admin REST API using a client-credentials
// token that is fetched and refreshed on demand.
type AdminClient struct {
	baseURL    string
	realm      string
	httpClient *http.Client
}

// NewAdminClient resolves the realm token endpoint and returns a client whose
// requests carry a service-account bearer token. ctx bounds discovery only.
func NewAdminClient(ctx context.Context, cfg Config, opts ...ClientOption) (*AdminClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := o.httpClient
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}

	tokenURL := o.tokenURL
	if tokenURL == "" {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, base), IssuerURL(cfg.BaseURL, cfg.Realm))
		if err != nil {
			return nil, fmt.Errorf("keycloak: discover realm %q: %w", cfg.Realm, err)
		}
		tokenURL = provider.Endpoint().TokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}
	// The token source outlives ctx, so it gets its own background context.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(tokenCtx)
	httpClient.Timeout = timeout

	return &AdminClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		realm:      cfg.Realm,
		httpClient: httpClient,
	}, nil
}

// Realm returns the realm the client was configured for.
func (c *AdminClient) Realm() string {
	return c.realm
}

func (c *AdminClient) usersURL(realm string) string {
	return c.baseURL + "/admin/realms/" + url.PathEscape(realm) + "/users"
}

// CreateUser submits user to realm and returns the status code Keycloak
// answered with. A non-nil error means no status code was obtained.
func (c *AdminClient) CreateUser(ctx context.Context, realm string, user UserRepresentation) (int, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return 0, fmt.Errorf("keycloak: marshal user: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.usersURL(realm), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("keycloak: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("keycloak: create user: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxDrainBytes))

	return res.StatusCode, nil
}
