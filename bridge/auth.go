// Bridge websocket authentication

package bridge

import (
	"github.com/golang-jwt/jwt/v5"

	rtmp "github.com/mntone/rtmpclient"
)

// makeAuthToken signs a short bearer token identifying this client to a
// remote control server. Returns "" if no secret is configured, matching
// the header being omitted entirely in that case.
func makeAuthToken(secret string) string {
	if secret == "" {
		return ""
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "rtmp-client",
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		rtmp.LogError(err)
		return ""
	}

	return signed
}
