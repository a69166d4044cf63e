package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignResource derives the deletion token handed out with an uploaded image.
func SignResource(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	payload := strings.Join(parts, ":")
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyResource(secret string, signature string, parts ...string) bool {
	if signature == "" {
		return false
	}
	expected := SignResource(secret, parts...)
	return hmac.Equal([]byte(signature), []byte(expected))
}
