package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistryTest(t *testing.T, opts ...Option) (*Registry, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewRegistry(client, 2*time.Hour, opts...), mr
}

func TestHashToken(t *testing.T) {
	a := HashToken("header.payload.signature")
	b := HashToken("header.payload.signature")
	c := HashToken("header.payload.signaturf")

	assert.Len(t, a, HashLength)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRegistry_Denylist(t *testing.T) {
	ctx := context.Background()
	r, mr := setupRegistryTest(t)

	revoked, err := r.IsDenylisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Denylist(ctx, "tok-1", 42, 30*time.Minute))

	revoked, err = r.IsDenylisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	owner, err := mr.Get(denylistPrefix + HashToken("tok-1"))
	require.NoError(t, err)
	assert.Equal(t, "42", owner)

	assert.Equal(t, 30*time.Minute, mr.TTL(denylistPrefix+HashToken("tok-1")))
	assert.Equal(t, 2*time.Hour, mr.TTL(userTokensPrefix+"42"))

	other, err := r.IsDenylisted(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, other)
}

func TestRegistry_DenylistDefaultsToNominalTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := setupRegistryTest(t)

	require.NoError(t, r.Denylist(ctx, "tok", 1, 0))

	assert.Equal(t, 2*time.Hour, mr.TTL(denylistPrefix+HashToken("tok")))
}

func TestRegistry_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	r, mr := setupRegistryTest(t)

	require.NoError(t, r.Denylist(ctx, "tok", 1, time.Minute))
	mr.FastForward(61 * time.Second)

	revoked, err := r.IsDenylisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists(userTokensPrefix+"1"))
}

func TestRegistry_DenylistAll(t *testing.T) {
	ctx := context.Background()
	r, mr := setupRegistryTest(t)

	require.NoError(t, r.Track(ctx, "a1", 7))
	require.NoError(t, r.Track(ctx, "a2", 7))
	require.NoError(t, r.Track(ctx, "b1", 8))

	n, err := r.Tracked(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, r.DenylistAll(ctx, 7))

	for _, tok := range []string{"a1", "a2"} {
		revoked, err := r.IsDenylisted(ctx, tok)
		require.NoError(t, err)
		assert.True(t, revoked, tok)
		assert.Equal(t, 2*time.Hour, mr.TTL(denylistPrefix+HashToken(tok)))
	}

	revoked, err := r.IsDenylisted(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRegistry_DenylistAllWithoutTokens(t *testing.T) {
	r, _ := setupRegistryTest(t)

	assert.NoError(t, r.DenylistAll(context.Background(), 99))
}

func TestRegistry_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	r, mr := setupRegistryTest(t, WithKeyPrefix("bastion:"))

	require.NoError(t, r.Denylist(ctx, "tok", 3, 0))

	assert.True(t, mr.Exists("bastion:"+denylistPrefix+HashToken("tok")))
	assert.True(t, mr.Exists("bastion:"+userTokensPrefix+"3"))
}

func TestRegistry_Unavailable(t *testing.T) {
	ctx := context.Background()
	r, mr := setupRegistryTest(t)
	mr.Close()

	_, err := r.IsDenylisted(ctx, "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, r.Denylist(ctx, "tok", 1, 0), ErrUnavailable)
	assert.ErrorIs(t, r.Track(ctx, "tok", 1), ErrUnavailable)
	assert.ErrorIs(t, r.DenylistAll(ctx, 1), ErrUnavailable)
	assert.ErrorIs(t, r.Ping(ctx), ErrUnavailable)
}

func BenchmarkRegistry_IsDenylisted(b *testing.B) {
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatal(err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	r := NewRegistry(client, 2*time.Hour)
	if err := r.Denylist(ctx, "revoked-token", 1, time.Hour); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.IsDenylisted(ctx, "live-token"); err != nil {
			b.Fatal(err)
		}
	}
}
