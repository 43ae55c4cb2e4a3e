// Package directory is a client for the identity/attribute store: a
// Keycloak-style realm admin API holding user identity, demographics and
// roles. The service correlates its UUID identity ids with the records
// store; the client only ever reads.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when an identity id has no counterpart in the
// directory. Pipelines treat it as an unresolved cross-reference, not as a
// failure.
var ErrNotFound = errors.New("identity not found")

// Identity is one directory user. Attributes are sparse and multi-valued;
// the first value of an attribute is canonical.
type Identity struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Email      string              `json:"email"`
	Attributes map[string][]string `json:"attributes"`
}

// DisplayName returns "First Last", falling back to the username when the
// directory has no name on file.
func (id *Identity) DisplayName() string {
	name := strings.TrimSpace(id.FirstName + " " + id.LastName)
	if name == "" {
		return id.Username
	}
	return name
}

// Attr returns the canonical (first) value of an attribute and whether the
// attribute is present. Absence means "unknown", never empty string.
func (id *Identity) Attr(key string) (string, bool) {
	vals, ok := id.Attributes[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// AttrAll returns every value of a multi-valued attribute.
func (id *Identity) AttrAll(key string) []string {
	return id.Attributes[key]
}

// Config holds directory connection settings.
type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the directory admin API with a cached client-credentials
// token. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// New creates a directory client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// accessToken returns a valid bearer token, refreshing via the
// client-credentials grant when the cached one is missing or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExp) > 30*time.Second {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Realm)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/admin/realms/%s%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Realm, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("directory returned status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// FindByUsername searches users by username. With exact=true only the
// literal username matches, mirroring the admin API semantics.
func (c *Client) FindByUsername(ctx context.Context, username string, exact bool) ([]*Identity, error) {
	q := url.Values{"username": {username}, "exact": {strconv.FormatBool(exact)}}
	var users []*Identity
	if err := c.get(ctx, "/users", q, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID fetches a single identity by its UUID id. Returns ErrNotFound
// when the id has no directory counterpart.
func (c *Client) GetByID(ctx context.Context, id string) (*Identity, error) {
	var user Identity
	if err := c.get(ctx, "/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByAttribute searches users by a custom attribute key:value pair.
func (c *Client) FindByAttribute(ctx context.Context, key, value string) ([]*Identity, error) {
	q := url.Values{"q": {key + ":" + value}}
	var users []*Identity
	if err := c.get(ctx, "/users", q, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers pages through the realm's users.
func (c *Client) ListUsers(ctx context.Context, first, max int) ([]*Identity, error) {
	q := url.Values{
		"first": {strconv.Itoa(first)},
		"max":   {strconv.Itoa(max)},
	}
	var users []*Identity
	if err := c.get(ctx, "/users", q, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RealmRoles returns the realm-level role names mapped to a user.
func (c *Client) RealmRoles(ctx context.Context, userID string) ([]string, error) {
	var roles []struct {
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/role-mappings/realm", nil, &roles); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// Ping probes the realm's public endpoint without authentication.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/realms/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory realm endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
