package keystore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/internal/storage"
	"github.com/sirosfoundation/go-fiscal/internal/storage/file"
	"github.com/sirosfoundation/go-fiscal/internal/testpki"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

type fixture struct {
	store    *file.Store
	cipher   *Cipher
	provider *AccountProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)
	c, err := NewCipher(testSecret)
	require.NoError(t, err)
	p, err := NewAccountProvider(&AccountProviderConfig{Store: store, Cipher: c})
	require.NoError(t, err)
	return &fixture{store: store, cipher: c, provider: p}
}

func (f *fixture) addAccount(t *testing.T, cnpj string, password string, notAfter time.Time) string {
	t.Helper()
	cert := testpki.New(t, testpki.Options{
		CommonName: "EMPRESA DE TESTE LTDA:" + cnpj,
		NotAfter:   notAfter,
	})
	encCert, err := f.cipher.EncryptFile(cert.PFX)
	require.NoError(t, err)
	encPass, err := f.cipher.Encrypt(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	a := &storage.Account{
		APIKey:      uuid.NewString(),
		Certificate: encCert,
		Password:    encPass,
		Metadata: storage.AccountMetadata{
			CNPJ:       cnpj,
			ValidUntil: cert.Certificate.NotAfter,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	require.NoError(t, f.store.CreateAccount(context.Background(), a))
	return a.APIKey
}

func TestAccountProvider_Load(t *testing.T) {
	f := newFixture(t)
	key := f.addAccount(t, "52507723000185", testpki.Password, time.Time{})

	m, err := f.provider.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, m.APIKey)
	assert.Equal(t, "52507723000185", m.TaxpayerID)
	require.NotNil(t, m.Credentials)
	assert.NotNil(t, m.Credentials.PrivateKey)
}

func TestAccountProvider_MissingAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.provider.Load(context.Background(), uuid.NewString())
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindCertificateNotFound))
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAccountProvider_WrongStoredPassword(t *testing.T) {
	f := newFixture(t)
	key := f.addAccount(t, "52507723000185", "not-the-password", time.Time{})

	_, err := f.provider.Load(context.Background(), key)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindInvalidPassword))
}

func TestAccountProvider_UndecryptableAccount(t *testing.T) {
	f := newFixture(t)
	key := f.addAccount(t, "52507723000185", testpki.Password, time.Time{})

	other, err := NewCipher("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)
	p, err := NewAccountProvider(&AccountProviderConfig{Store: f.store, Cipher: other})
	require.NoError(t, err)

	_, err = p.Load(context.Background(), key)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindInternal))
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestAccountProvider_DeletedAccountFailsOnNextLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.addAccount(t, "52507723000185", testpki.Password, time.Time{})

	_, err := f.provider.Load(ctx, key)
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteAccount(ctx, key))

	m, err := f.provider.Load(ctx, key)
	assert.Nil(t, m)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindCertificateNotFound))
}

func TestAccountProvider_RotatedCertificateOnNextLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.addAccount(t, "52507723000185", testpki.Password, time.Time{})

	first, err := f.provider.Load(ctx, key)
	require.NoError(t, err)

	newer := testpki.New(t, testpki.Options{
		CommonName: "EMPRESA NOVA LTDA:52507723000185",
		NotAfter:   time.Now().Add(72 * time.Hour).Truncate(time.Second),
	})
	account, err := f.store.GetAccount(ctx, key)
	require.NoError(t, err)
	account.Certificate, err = f.cipher.EncryptFile(newer.PFX)
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateAccount(ctx, account))

	second, err := f.provider.Load(ctx, key)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "EMPRESA NOVA LTDA:52507723000185", second.Credentials.Certificate.Subject.CommonName)
	assert.True(t, second.Credentials.Certificate.NotAfter.Equal(newer.Certificate.NotAfter))
}

func TestAccountProvider_EveryLoadOpensFreshMaterial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.addAccount(t, "52507723000185", testpki.Password, time.Time{})

	first, err := f.provider.Load(ctx, key)
	require.NoError(t, err)
	second, err := f.provider.Load(ctx, key)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.NotSame(t, first.Credentials, second.Credentials)
}
