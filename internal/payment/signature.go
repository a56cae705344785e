package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// canonicalFields lists the notification fields covered by the signature, in
// whatever order; the digest sorts them.
func canonicalFields(n Notification) map[string]string {
	return map[string]string{
		"merchantId": n.MerchantID,
		"orderId":    n.OrderID,
		"amount":     fmt.Sprintf("%d", n.Amount),
		"currency":   n.Currency,
		"statusCode": n.StatusCode,
		"method":     n.Method,
	}
}

// Sign computes the keyed digest of a notification: SHA-256 over the sorted
// key=value pairs joined with "&", with the shared secret appended.
func Sign(n Notification, secret string) string {
	fields := canonicalFields(n)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	sum := sha256.Sum256([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the notification's signature in constant time.
func VerifySignature(n Notification, secret string) bool {
	expected := Sign(n, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.Signature)) == 1
}
