package service

import (
	"context"
	"testing"
	"time"

	"ai-dispatch-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCredentials(t *testing.T) (ICredentialService, *fakeFactory) {
	t.Helper()
	factory := newFakeFactory()
	return NewCredentialService(factory, memory.NewCredentialCache(time.Minute), nopLogger{}), factory
}

func TestCredentialRoundTrip(t *testing.T) {
	svc, _ := newTestCredentials(t)
	userId := uuid.New()
	ctx := context.Background()

	has, err := svc.HasOwnCredential(ctx, userId, "openai")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = svc.SetCredential(ctx, userId, "openai", "sk-user-key")
	require.NoError(t, err)

	cred, err := svc.GetCredential(ctx, userId, "openai")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "sk-user-key", cred.ApiKey)

	// Scoped per vendor family.
	has, err = svc.HasOwnCredential(ctx, userId, "gemini")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, svc.RemoveCredential(ctx, userId, "openai"))
	has, err = svc.HasOwnCredential(ctx, userId, "openai")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCredentialBlankKeyDoesNotCount(t *testing.T) {
	svc, factory := newTestCredentials(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := svc.SetCredential(ctx, userId, "openai", "   ")
	require.NoError(t, err)

	// The row exists in storage, but a blank key never makes a call
	// self-funded.
	stored, err := factory.creds.lookup(userId, "openai")
	require.NoError(t, err)
	require.NotNil(t, stored)

	has, err := svc.HasOwnCredential(ctx, userId, "openai")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCredentialNegativeLookupIsCached(t *testing.T) {
	svc, _ := newTestCredentials(t)
	userId := uuid.New()
	ctx := context.Background()

	has, err := svc.HasOwnCredential(ctx, userId, "openai")
	require.NoError(t, err)
	assert.False(t, has)

	// Writing behind the service's back is not seen until the cache entry
	// is invalidated; SetCredential through the service invalidates it.
	_, err = svc.SetCredential(ctx, userId, "openai", "sk-fresh")
	require.NoError(t, err)

	cred, err := svc.GetCredential(ctx, userId, "openai")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "sk-fresh", cred.ApiKey)
}

func TestCredentialListReturnsAllVendors(t *testing.T) {
	svc, _ := newTestCredentials(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := svc.SetCredential(ctx, userId, "openai", "sk-a")
	require.NoError(t, err)
	_, err = svc.SetCredential(ctx, userId, "gemini", "sk-b")
	require.NoError(t, err)
	_, err = svc.SetCredential(ctx, uuid.New(), "openai", "sk-other-user")
	require.NoError(t, err)

	creds, err := svc.ListCredentials(ctx, userId)
	require.NoError(t, err)
	assert.Len(t, creds, 2)
}
