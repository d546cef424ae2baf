package client

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestClientIDFromToken_AZP(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"azp": "etl-loader"})

	clientID, err := ClientIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "etl-loader", clientID)
}

func TestClientIDFromToken_ClientIDClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"client_id": "reporting"})

	clientID, err := ClientIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reporting", clientID)
}

func TestClientIDFromToken_NoClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "someone"})

	_, err := ClientIDFromToken(token)
	assert.ErrorContains(t, err, "no client id claim")
}

func TestClientIDFromToken_Garbage(t *testing.T) {
	_, err := ClientIDFromToken("not-a-jwt")
	assert.Error(t, err)
}
