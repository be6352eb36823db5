package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body, in both
// directions.
const SignatureHeader = "X-OUTBOUND-TOKEN"

// Sign returns the hex HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedWebhook rejects events whose SignatureHeader does not match the body.
// Verification challenges pass through unchecked; they are answered with a
// signature of their own.
func SignedWebhook(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
			r.Body.Close()
			if err != nil {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "reading body: %v", err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var peek struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(body, &peek) == nil && peek.Type == eventVerification {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(SignatureHeader)
			want := Sign(secret, body)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing webhook signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
