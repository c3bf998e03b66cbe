package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// sign reproduces Twilio's request signature
func sign(token, fullURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k + params[k])
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateTwilioSignature(t *testing.T) {
	app := fiber.New()
	app.Post("/webhook/whatsapp", ValidateTwilioSignature("secret-token"), okHandler)

	params := map[string]string{"From": "whatsapp:+5511988887777", "Body": "oi", "MessageSid": "SM1"}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid", sign("secret-token", "http://example.com/webhook/whatsapp", params), http.StatusOK},
		{"wrong token", sign("other", "http://example.com/webhook/whatsapp", params), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/webhook/whatsapp", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.signature != "" {
				req.Header.Set("X-Twilio-Signature", tt.signature)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireWebhookSecret(t *testing.T) {
	app := fiber.New()
	app.Post("/hook", RequireWebhookSecret("s3cret"), okHandler)

	for header, want := range map[string]int{"s3cret": http.StatusOK, "nope": http.StatusUnauthorized, "": http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		if header != "" {
			req.Header.Set(WebhookSecretHeader, header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "header %q", header)
	}
}

func TestRequireBearer(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", RequireBearer("adm"), okHandler)

	for auth, want := range map[string]int{
		"Bearer adm":   http.StatusOK,
		"Bearer wrong": http.StatusUnauthorized,
		"adm":          http.StatusUnauthorized,
		"":             http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "auth %q", auth)
	}
}

func TestEmptyConfiguredSecretRejectsEverything(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", RequireBearer(""), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
