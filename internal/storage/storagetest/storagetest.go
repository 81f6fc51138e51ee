// Package storagetest holds the behavior shared by every account store.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/internal/storage"
)

// NewAccount returns an account with a fresh API key for cnpj. Times are
// truncated to milliseconds so every backend round-trips them exactly.
func NewAccount(cnpj string) *storage.Account {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &storage.Account{
		APIKey:      uuid.NewString(),
		Certificate: "ZW5jcnlwdGVkLWNlcnRpZmljYXRl",
		Password:    "ZW5jcnlwdGVkLXBhc3N3b3Jk",
		Metadata: storage.AccountMetadata{
			CNPJ:         cnpj,
			CompanyName:  "EMPRESA DE TESTE LTDA",
			Issuer:       "AC TESTE",
			SerialNumber: "1234",
			ValidUntil:   now.Add(365 * 24 * time.Hour),
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// Run exercises store against the AccountStore contract. The store must
// be empty.
func Run(t *testing.T, store storage.AccountStore) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		a := NewAccount("11222333000181")
		require.NoError(t, store.CreateAccount(ctx, a))

		got, err := store.GetAccount(ctx, a.APIKey)
		require.NoError(t, err)
		assertSameAccount(t, a, got)

		byCNPJ, err := store.GetAccountByCNPJ(ctx, a.Metadata.CNPJ)
		require.NoError(t, err)
		assert.Equal(t, a.APIKey, byCNPJ.APIKey)

		ok, err := store.AccountExists(ctx, a.APIKey)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("DuplicateCNPJ", func(t *testing.T) {
		a := NewAccount("22333444000105")
		require.NoError(t, store.CreateAccount(ctx, a))

		err := store.CreateAccount(ctx, NewAccount("22333444000105"))
		assert.ErrorIs(t, err, storage.ErrAccountExists)
	})

	t.Run("Missing", func(t *testing.T) {
		missing := uuid.NewString()

		_, err := store.GetAccount(ctx, missing)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)

		_, err = store.GetAccountByCNPJ(ctx, "99888777000166")
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)

		ok, err := store.AccountExists(ctx, missing)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, store.DeleteAccount(ctx, missing), storage.ErrAccountNotFound)

		a := NewAccount("99888777000166")
		assert.ErrorIs(t, store.UpdateAccount(ctx, a), storage.ErrAccountNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		a := NewAccount("33444555000120")
		require.NoError(t, store.CreateAccount(ctx, a))

		b := a.Clone()
		b.Certificate = "cm90YXRlZA=="
		b.Metadata.CompanyName = "EMPRESA RENOMEADA LTDA"
		b.Metadata.UpdatedAt = a.Metadata.UpdatedAt.Add(time.Minute)
		require.NoError(t, store.UpdateAccount(ctx, b))

		got, err := store.GetAccount(ctx, a.APIKey)
		require.NoError(t, err)
		assertSameAccount(t, b, got)
	})

	t.Run("UpdateToTakenCNPJ", func(t *testing.T) {
		a := NewAccount("44555666000150")
		b := NewAccount("55666777000199")
		require.NoError(t, store.CreateAccount(ctx, a))
		require.NoError(t, store.CreateAccount(ctx, b))

		b.Metadata.CNPJ = a.Metadata.CNPJ
		assert.ErrorIs(t, store.UpdateAccount(ctx, b), storage.ErrAccountExists)
	})

	t.Run("Delete", func(t *testing.T) {
		a := NewAccount("66777888000102")
		require.NoError(t, store.CreateAccount(ctx, a))
		require.NoError(t, store.DeleteAccount(ctx, a.APIKey))

		_, err := store.GetAccount(ctx, a.APIKey)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)

		// the CNPJ is free again
		require.NoError(t, store.CreateAccount(ctx, NewAccount("66777888000102")))
	})

	t.Run("ConcurrentCreateSameCNPJ", func(t *testing.T) {
		const n = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.CreateAccount(ctx, NewAccount("77888999000133")); err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
	})
}

func assertSameAccount(t *testing.T, want, got *storage.Account) {
	t.Helper()
	assert.Equal(t, want.APIKey, got.APIKey)
	assert.Equal(t, want.Certificate, got.Certificate)
	assert.Equal(t, want.Password, got.Password)
	assert.Equal(t, want.Metadata.CNPJ, got.Metadata.CNPJ)
	assert.Equal(t, want.Metadata.CompanyName, got.Metadata.CompanyName)
	assert.Equal(t, want.Metadata.Issuer, got.Metadata.Issuer)
	assert.Equal(t, want.Metadata.SerialNumber, got.Metadata.SerialNumber)
	assert.True(t, want.Metadata.ValidUntil.Equal(got.Metadata.ValidUntil))
	assert.True(t, want.Metadata.CreatedAt.Equal(got.Metadata.CreatedAt))
	assert.True(t, want.Metadata.UpdatedAt.Equal(got.Metadata.UpdatedAt))
}
