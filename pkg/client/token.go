package client

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ClientIDFromToken extracts the service-account client ID from an API bearer
// token without verifying the signature. Verification belongs to the server;
// the client only needs the identity claim to resolve its own principal
// (e.g. against the user cache's service-account short-circuit).
func ClientIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parsing API token: %w", err)
	}

	for _, key := range []string{"azp", "client_id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("API token carries no client id claim")
}
