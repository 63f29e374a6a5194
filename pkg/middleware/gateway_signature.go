package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/logger"
)

const (
	WebhookSignatureHeader = "X-Webhook-Signature"
	WebhookPathPrefix      = "/api/v1/webhooks/payments/"
)

// GatewaySignatureVerification checks X-Webhook-Signature (hex HMAC-SHA256 of the raw body)
// on payment webhook routes. Gateways without a configured secret are not verified.
func GatewaySignatureVerification(secrets map[string]string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gateway, isWebhook := strings.CutPrefix(r.URL.Path, WebhookPathPrefix)
			if !isWebhook {
				next.ServeHTTP(w, r)
				return
			}
			gateway = strings.ToLower(strings.Trim(gateway, "/"))

			secret, configured := secrets[gateway]
			if !configured {
				next.ServeHTTP(w, r)
				return
			}

			signature := extractSignature(r)
			if signature == "" {
				rejectWebhook(w, log, r, gateway, "missing "+WebhookSignatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectWebhook(w, log, r, gateway, "failed to read request body")
				return
			}

			if !VerifySignature(body, signature, secret) {
				rejectWebhook(w, log, r, gateway, "invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(WebhookSignatureHeader))
	signature, _ := strings.CutPrefix(header, "sha256=")
	return strings.ToLower(signature)
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

func VerifySignature(body []byte, receivedSignature string, secret string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(receivedSignature))
}

func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func rejectWebhook(w http.ResponseWriter, log *logger.Logger, r *http.Request, gateway, reason string) {
	log.Warn("Payment webhook verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"gateway", gateway,
		"reason", reason,
		"remote_addr", r.RemoteAddr,
	)

	writeAppError(w, apperrors.New(apperrors.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized))
}
