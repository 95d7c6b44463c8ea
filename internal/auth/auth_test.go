package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("gatepass"), bcrypt.MinCost)
	require.NoError(t, err)

	a, err := New("test-secret", time.Hour, []Account{
		{Username: "Security1", Name: "Grace", Role: "security", PasswordHash: string(hash)},
	})
	require.NoError(t, err)
	return a
}

func TestLogin(t *testing.T) {
	a := newAuthenticator(t)

	testCases := []struct {
		name      string
		username  string
		password  string
		expectErr error
	}{
		{name: "exact username", username: "Security1", password: "gatepass"},
		{name: "case-insensitive username", username: "  security1 ", password: "gatepass"},
		{name: "wrong password", username: "security1", password: "nope", expectErr: ErrInvalidCredentials},
		{name: "unknown user", username: "cafe1", password: "gatepass", expectErr: ErrInvalidCredentials},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, acc, err := a.Login(tc.username, tc.password)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "security", acc.Role)

			claims, err := a.ParseValidate(token)
			require.NoError(t, err)
			assert.Equal(t, "Security1", claims.Sub)
			assert.Equal(t, "security", claims.Role)
		})
	}
}

func TestParseValidate_Rejects(t *testing.T) {
	a := newAuthenticator(t)
	token, err := a.CreateAccessToken(Account{Username: "x", Role: "admin"})
	require.NoError(t, err)

	other, err := New("other-secret", time.Hour, nil)
	require.NoError(t, err)
	_, err = other.ParseValidate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.ParseValidate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = a.ParseValidate("garbage")
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", time.Hour, nil)
	assert.Error(t, err)

	_, err = New("s", time.Hour, []Account{{Username: "a"}, {Username: "A"}})
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("secret", hash))
	assert.False(t, CheckPasswordHash("Secret", hash))
}
