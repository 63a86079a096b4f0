package tripay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// TransactionSignature signs a closed-payment request:
// hex(HMAC-SHA256(private_key, merchant_code + merchant_ref + amount)).
func TransactionSignature(privateKey, merchantCode, merchantRef string, amount int64) string {
	return sign(privateKey, []byte(merchantCode+merchantRef+strconv.FormatInt(amount, 10)))
}

// CallbackSignature is the signature Tripay sends in X-Callback-Signature:
// hex(HMAC-SHA256(private_key, raw body)).
func CallbackSignature(privateKey string, body []byte) string {
	return sign(privateKey, body)
}

// VerifyCallbackSignature compares in constant time.
func VerifyCallbackSignature(privateKey string, body []byte, signature string) bool {
	if privateKey == "" || signature == "" {
		return false
	}
	expected := CallbackSignature(privateKey, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func sign(privateKey string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
