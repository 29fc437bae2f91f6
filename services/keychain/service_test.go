package keychain_test

import (
	"context"
	"testing"

	"bemisreg-backend/lib/testutil"
	"bemisreg-backend/services/keychain"
	"bemisreg-backend/services/keychain/db"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *keychain.Service {
	t.Helper()
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "keychain",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	return keychain.NewService(result.DB)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	service := setup(t)

	_, err := service.Session(ctx)
	require.ErrorIs(t, err, keychain.ErrNoSession)

	err = service.SetSession(ctx, "  .AspNetCore.Session=abc; XSRF-TOKEN=t1  ")
	require.NoError(t, err)

	session, err := service.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, ".AspNetCore.Session=abc; XSRF-TOKEN=t1", session)

	// replacing is wholesale
	err = service.SetSession(ctx, "XSRF-TOKEN=t2")
	require.NoError(t, err)
	session, err = service.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, "XSRF-TOKEN=t2", session)
}

func TestSetSessionRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	service := setup(t)

	require.Error(t, service.SetSession(ctx, ""))
	require.Error(t, service.SetSession(ctx, "   "))

	_, err := service.Session(ctx)
	require.ErrorIs(t, err, keychain.ErrNoSession)
}

func TestKeyPoolRoundRobin(t *testing.T) {
	ctx := context.Background()
	service := setup(t)

	_, err := service.NextKey(ctx)
	require.ErrorIs(t, err, keychain.ErrNoApiKeys)

	require.NoError(t, service.AddKey(ctx, "sk-or-aaa"))
	require.NoError(t, service.AddKey(ctx, "sk-or-bbb"))

	count, err := service.CountKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// keys added within the same second tie-break alphabetically, so the
	// rotation order is stable
	var seen []string
	for i := 0; i < 4; i++ {
		key, err := service.NextKey(ctx)
		require.NoError(t, err)
		seen = append(seen, key)
	}
	require.Equal(t, []string{"sk-or-aaa", "sk-or-bbb", "sk-or-aaa", "sk-or-bbb"}, seen)
}

func TestAddKeyDuplicate(t *testing.T) {
	ctx := context.Background()
	service := setup(t)

	require.NoError(t, service.AddKey(ctx, "sk-or-aaa"))
	require.ErrorIs(t, service.AddKey(ctx, "sk-or-aaa"), keychain.ErrKeyExists)

	count, err := service.CountKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAddKeyRejectsEmpty(t *testing.T) {
	service := setup(t)
	require.Error(t, service.AddKey(context.Background(), "  "))
}

func TestRemoveKey(t *testing.T) {
	ctx := context.Background()
	service := setup(t)

	require.ErrorIs(t, service.RemoveKey(ctx, "sk-or-aaa"), keychain.ErrKeyNotFound)

	require.NoError(t, service.AddKey(ctx, "sk-or-aaa"))
	require.NoError(t, service.RemoveKey(ctx, "sk-or-aaa"))

	count, err := service.CountKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
