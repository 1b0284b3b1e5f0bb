package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	exp := time.Now().Add(time.Hour).Unix()
	issued, err := IssueToken(secret, Claims{
		Sub:  "user-1",
		Name: "Ana Lima",
		Role: "secretary",
		JTI:  "jti-1",
		Exp:  exp,
	})
	require.NoError(t, err)

	claims, err := ParseToken(secret, issued)
	require.NoError(t, err)
	assert.Equal(t, Claims{Sub: "user-1", Name: "Ana Lima", Role: "secretary", JTI: "jti-1", Exp: exp}, claims)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{
		Sub:  "user-1",
		Name: "Ana Lima",
		Role: "secretary",
		JTI:  "jti-1",
		Exp:  time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = ParseToken(secret, issued)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), Claims{Sub: "u", Name: "n", JTI: "j", Exp: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	_, err = ParseToken([]byte("other"), issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub":  "u",
		"name": "n",
		"jti":  "j",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret"), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRequiresIdentity(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), Claims{Sub: "u", Exp: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret"), issued)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken([]byte("secret"), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashToken(t *testing.T) {
	assert.Len(t, HashToken("refresh"), 64)
	assert.Equal(t, HashToken("refresh"), HashToken("refresh"))
	assert.NotEqual(t, HashToken("refresh"), HashToken("other"))
}
