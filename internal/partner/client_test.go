package partner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiolens/whatsapp-relay/internal/httpclient"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/retry"
)

func signToken(t *testing.T, exp time.Time, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

// fakeBackend issues tokens and serves a tiny fixed data set
type fakeBackend struct {
	t          *testing.T
	logins     atomic.Int32
	valid      atomic.Value // string, the token currently accepted
	rejectOnce atomic.Bool
	mux        *http.ServeMux
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{t: t, mux: http.NewServeMux()}
	fb.valid.Store("")

	fb.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := fb.logins.Add(1)
		tok := signToken(t, time.Now().Add(time.Hour), string(rune('a'+n)))
		fb.valid.Store(tok)
		writeJSON(w, map[string]string{"accessToken": tok})
	})
	fb.mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		if r.URL.Query().Get("document") == "52998224725" {
			writeJSON(w, []models.Customer{{ID: "c-1", Name: "Maria Silva", Document: "52998224725"}})
			return
		}
		writeJSON(w, []models.Customer{})
	})
	fb.mux.HandleFunc("GET /cohorts", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		if r.URL.Query().Get("code") != "MED26" {
			writeJSON(w, []models.Cohort{})
			return
		}
		writeJSON(w, []models.Cohort{{ID: "t-1", Code: "MED26", Name: "Medicina 2026"}})
	})
	fb.mux.HandleFunc("GET /cohorts/{id}/pricing", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		if r.PathValue("id") != "t-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, models.PricingConfig{ID: "p-1", CohortID: "t-1", MaxInstallments: 10})
	})
	fb.mux.HandleFunc("GET /cohorts/{id}/items", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		writeJSON(w, []models.CatalogItem{
			{ID: "i-1", Name: "Álbum", Value: 10},
			{ID: "i-2", Name: "Fotos extras", Value: 20},
		})
	})
	fb.mux.HandleFunc("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		var in models.NewCustomer
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Document == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, models.Customer{ID: "c-new", Name: in.Name, Document: in.Document})
	})
	fb.mux.HandleFunc("GET /customers/{id}/charges", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		writeJSON(w, []models.Charge{{ID: "ch-1", Amount: 150, DueDate: "2026-02-10", Link: "https://pay/1"}})
	})
	fb.mux.HandleFunc("GET /forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	srv := httptest.NewServer(fb.mux)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "bot@studio.test", "secret",
		httpclient.WithRetryPolicy(retry.Policy{MaxRetries: 1, InitialInterval: time.Millisecond}))
	return fb, client
}

func (fb *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if fb.rejectOnce.CompareAndSwap(true, false) {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	if r.Header.Get("Authorization") != "Bearer "+fb.valid.Load().(string) {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_LogsInLazilyAndReusesToken(t *testing.T) {
	fb, c := newFakeBackend(t)
	ctx := context.Background()

	cust, err := c.FindCustomerByDocument(ctx, "52998224725")
	require.NoError(t, err)
	require.NotNil(t, cust)
	assert.Equal(t, "c-1", cust.ID)

	_, err = c.FindCohortByCode(ctx, "MED26")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fb.logins.Load())
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.TokenExpiry(), 5*time.Second)
}

func TestClient_NotFoundIsNil(t *testing.T) {
	_, c := newFakeBackend(t)
	ctx := context.Background()

	cust, err := c.FindCustomerByDocument(ctx, "11144477735")
	require.NoError(t, err)
	assert.Nil(t, cust)

	cohort, err := c.FindCohortByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, cohort)

	pricing, err := c.GetCohortPricing(ctx, "t-9")
	require.NoError(t, err)
	assert.Nil(t, pricing)
}

func TestClient_ReloginOnceAfter401(t *testing.T) {
	fb, c := newFakeBackend(t)
	ctx := context.Background()
	require.NoError(t, c.RefreshToken(ctx))

	fb.rejectOnce.Store(true)
	items, err := c.GetCustomItems(ctx, "t-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, fb.logins.Load())
}

func TestClient_ForbiddenIsUnauthorized(t *testing.T) {
	_, c := newFakeBackend(t)
	err := c.do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/forbidden"}, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_BadCredentials(t *testing.T) {
	_, c := newFakeBackend(t)
	c.password = "wrong"
	_, err := c.FindCohortByCode(context.Background(), "MED26")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_PricingItemsCustomerCharges(t *testing.T) {
	_, c := newFakeBackend(t)
	ctx := context.Background()

	pricing, err := c.GetCohortPricing(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, pricing)
	assert.Equal(t, 10, pricing.MaxInstallments)

	created, err := c.CreateCustomer(ctx, models.NewCustomer{Name: "Maria Silva", Document: "52998224725"})
	require.NoError(t, err)
	assert.Equal(t, "c-new", created.ID)

	_, err = c.CreateCustomer(ctx, models.NewCustomer{Name: "No Doc"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, retry.StatusOf(err))

	charges, err := c.ListOpenCharges(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "https://pay/1", charges[0].Link)
}

func TestTokenExpiry_Fallbacks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient("http://unused", "", "")
	c.now = func() time.Time { return now }

	exp := now.Add(30 * time.Minute).Truncate(time.Second)
	assert.True(t, exp.Equal(c.tokenExpiry(signToken(t, exp, "x"), 0)))
	assert.Equal(t, now.Add(2*time.Minute), c.tokenExpiry("opaque-token", 120))
	assert.Equal(t, now.Add(defaultTokenTTL), c.tokenExpiry("opaque-token", 0))
}
