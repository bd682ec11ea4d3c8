package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, clock *testClock, opts ...IssuerOption) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(testSecret, append([]IssuerOption{WithIssuerClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer_RejectsShortSecret(t *testing.T) {
	_, err := NewIssuer([]byte("short"))
	assert.Error(t, err)
}

func TestIssuer_IssueAndVerify(t *testing.T) {
	clock := newTestClock()
	issuer := newTestIssuer(t, clock)

	token, err := issuer.Issue(42, "alice")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(DefaultAccessTTL), token.ExpiresAt)
	assert.NotEmpty(t, token.ID)

	p, err := issuer.Verify(token.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, ScopeUser, p.Scope)
	assert.Equal(t, token.ID, p.TokenID)
	assert.True(t, token.ExpiresAt.Equal(p.ExpiresAt))
}

func TestIssuer_TokensAreUnique(t *testing.T) {
	issuer := newTestIssuer(t, newTestClock())

	a, err := issuer.Issue(1, "alice")
	require.NoError(t, err)
	b, err := issuer.Issue(1, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestIssuer_Expiry(t *testing.T) {
	clock := newTestClock()
	issuer := newTestIssuer(t, clock)

	token, err := issuer.Issue(1, "alice")
	require.NoError(t, err)

	clock.Advance(DefaultAccessTTL - time.Second)
	_, err = issuer.Verify(token.Token)
	assert.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = issuer.Verify(token.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestIssuer_CustomTTL(t *testing.T) {
	clock := newTestClock()
	issuer := newTestIssuer(t, clock, WithTTL(time.Minute))

	token, err := issuer.Issue(1, "alice")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, issuer.TTL())
	assert.Equal(t, clock.Now().Add(time.Minute), token.ExpiresAt)
}

func TestIssuer_RejectsForgedTokens(t *testing.T) {
	clock := newTestClock()
	issuer := newTestIssuer(t, clock)

	token, err := issuer.Issue(1, "alice")
	require.NoError(t, err)

	other, err := NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), WithIssuerClock(clock.Now))
	require.NoError(t, err)
	foreign, err := other.Issue(1, "alice")
	require.NoError(t, err)

	otherIssuer := newTestIssuer(t, clock, WithIssuerName("someone-else"))
	wrongIss, err := otherIssuer.Issue(1, "alice")
	require.NoError(t, err)

	now := clock.Now()
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	mismatched, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "2",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	parts := strings.Split(token.Token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered payload", tampered},
		{"different secret", foreign.Token},
		{"different issuer", wrongIss.Token},
		{"alg none", noneToken},
		{"subject mismatch", mismatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}
