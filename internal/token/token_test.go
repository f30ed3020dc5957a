package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	tokenString, err := BuildJWTString("42", secret)
	require.NoError(t, err)

	userCode, err := GetUserCode(tokenString, secret)
	require.NoError(t, err)
	require.Equal(t, "42", userCode)
}

func TestTokenWrongSecret(t *testing.T) {
	tokenString, err := BuildJWTString("42", "secret-one")
	require.NoError(t, err)

	_, err = GetUserCode(tokenString, "secret-two")
	require.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := GetUserCode("not-a-token", "secret")
	require.Error(t, err)
}
