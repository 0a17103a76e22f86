package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyPaymentSignature checks the checkout callback signature: a hex
// HMAC-SHA256 over "<razorpay_order_id>|<razorpay_payment_id>" keyed with
// the API secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// VerifySignature is the keyed form used by tests and tooling.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	signature = strings.TrimSpace(signature)
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
