// Package partner is the client for the studio management backend: customers,
// cohorts, pricing, catalog items and charges.
package partner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studiolens/whatsapp-relay/internal/httpclient"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/retry"
)

// ErrUnauthorized is returned when the backend rejects our credentials even after a fresh login
var ErrUnauthorized = errors.New("partner: unauthorized")

const (
	defaultTokenTTL = time.Hour
	// refresh a little before the token actually expires
	expirySkew = time.Minute
)

// Client talks to the partner REST API with a bearer token obtained from /auth/login
type Client struct {
	http     *httpclient.Client
	email    string
	password string
	now      func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient creates a client; no request is made until the first call
func NewClient(baseURL, email, password string, opts ...httpclient.Option) *Client {
	return &Client{
		http:     httpclient.New("partner", baseURL, opts...),
		email:    email,
		password: password,
		now:      time.Now,
	}
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
	ExpiresIn   int    `json:"expiresIn"`
}

// RefreshToken logs in again regardless of the current token state
func (c *Client) RefreshToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

// TokenExpiry returns when the current token stops being usable (zero if none)
func (c *Client) TokenExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

func (c *Client) loginLocked(ctx context.Context) error {
	var resp loginResponse
	err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": c.email, "password": c.password},
	}, &resp)
	if err != nil {
		if s := retry.StatusOf(err); s == http.StatusUnauthorized || s == http.StatusForbidden {
			return fmt.Errorf("login: %w", ErrUnauthorized)
		}
		return fmt.Errorf("login: %w", err)
	}

	token := resp.AccessToken
	if token == "" {
		token = resp.Token
	}
	if token == "" {
		return errors.New("login: response carried no token")
	}

	c.token = token
	c.expiresAt = c.tokenExpiry(token, resp.ExpiresIn)
	slog.Info("partner token refreshed", "expires_at", c.expiresAt)
	return nil
}

// tokenExpiry prefers the JWT exp claim, then expiresIn, then a default TTL
func (c *Client) tokenExpiry(token string, expiresIn int) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn > 0 {
		return c.now().Add(time.Duration(expiresIn) * time.Second)
	}
	return c.now().Add(defaultTokenTTL)
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.now().Add(expirySkew).Before(c.expiresAt) {
		if err := c.loginLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

func (c *Client) invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == stale {
		c.token = ""
	}
}

// do runs an authenticated request, logging in again once after a 401
func (c *Client) do(ctx context.Context, req httpclient.Request, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.currentToken(ctx)
		if err != nil {
			return err
		}
		req.Header = http.Header{"Authorization": {"Bearer " + token}}

		err = c.http.Do(ctx, req, out)
		switch retry.StatusOf(err) {
		case http.StatusUnauthorized:
			if attempt == 0 {
				c.invalidate(token)
				continue
			}
			return fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrUnauthorized)
		case http.StatusForbidden:
			return fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrUnauthorized)
		}
		return err
	}
}

func isNotFound(err error) bool {
	return retry.StatusOf(err) == http.StatusNotFound
}

// FindCustomerByDocument looks a customer up by CPF. Returns nil when there is none.
func (c *Client) FindCustomerByDocument(ctx context.Context, document string) (*models.Customer, error) {
	var customers []models.Customer
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/customers",
		Query:  url.Values{"document": {document}},
	}, &customers)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

// FindCohortByCode resolves the code customers type in. Returns nil when unknown.
func (c *Client) FindCohortByCode(ctx context.Context, code string) (*models.Cohort, error) {
	var cohorts []models.Cohort
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/cohorts",
		Query:  url.Values{"code": {code}},
	}, &cohorts)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cohort: %w", err)
	}
	if len(cohorts) == 0 {
		return nil, nil
	}
	return &cohorts[0], nil
}

// GetCohortPricing returns the cohort's commercial configuration, nil when not configured
func (c *Client) GetCohortPricing(ctx context.Context, cohortID string) (*models.PricingConfig, error) {
	var pricing models.PricingConfig
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/cohorts/" + url.PathEscape(cohortID) + "/pricing",
	}, &pricing)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cohort pricing: %w", err)
	}
	return &pricing, nil
}

// GetCustomItems lists the catalog items offered to a cohort, in presentation order
func (c *Client) GetCustomItems(ctx context.Context, cohortID string) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/cohorts/" + url.PathEscape(cohortID) + "/items",
	}, &items)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cohort items: %w", err)
	}
	return items, nil
}

// CreateCustomer registers a new customer
func (c *Client) CreateCustomer(ctx context.Context, in models.NewCustomer) (*models.Customer, error) {
	var customer models.Customer
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/customers",
		Body:   in,
	}, &customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	if customer.ID == "" {
		return nil, errors.New("create customer: response carried no id")
	}
	return &customer, nil
}

// ListOpenCharges returns the customer's unpaid charges
func (c *Client) ListOpenCharges(ctx context.Context, customerID string) ([]models.Charge, error) {
	var charges []models.Charge
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/customers/" + url.PathEscape(customerID) + "/charges",
		Query:  url.Values{"status": {"open"}},
	}, &charges)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list open charges: %w", err)
	}
	return charges, nil
}
