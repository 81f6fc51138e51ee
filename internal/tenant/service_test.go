package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/internal/keystore"
	"github.com/sirosfoundation/go-fiscal/internal/storage"
	"github.com/sirosfoundation/go-fiscal/internal/storage/file"
	"github.com/sirosfoundation/go-fiscal/internal/testpki"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

func newService(t *testing.T) (*Service, *file.Store, *keystore.Cipher) {
	t.Helper()
	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)
	c, err := keystore.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return NewService(store, c, nil), store, c
}

func newProvider(t *testing.T, store *file.Store, c *keystore.Cipher) *keystore.AccountProvider {
	t.Helper()
	p, err := keystore.NewAccountProvider(&keystore.AccountProviderConfig{Store: store, Cipher: c})
	require.NoError(t, err)
	return p
}

func upload(t *testing.T, opts testpki.Options) Upload {
	t.Helper()
	cert := testpki.New(t, opts)
	return Upload{Filename: "certificado.pfx", Content: cert.PFX, Password: testpki.Password}
}

func TestSetup(t *testing.T) {
	svc, store, c := newService(t)
	ctx := context.Background()

	res, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)

	_, err = uuid.Parse(res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "52.507.723/0001-85", res.Certificate.CNPJ)
	assert.Equal(t, "EMPRESA DE TESTE LTDA", res.Certificate.CompanyName)

	account, err := store.GetAccount(ctx, res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "52507723000185", account.Metadata.CNPJ)
	assert.False(t, account.Metadata.CreatedAt.IsZero())

	password, err := c.Decrypt(account.Password)
	require.NoError(t, err)
	assert.Equal(t, testpki.Password, password)
}

func TestSetup_DuplicateCNPJ(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)

	_, err = svc.Setup(ctx, upload(t, testpki.Options{}))
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindAccountExists))
}

func TestSetup_Rejections(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	valid := upload(t, testpki.Options{})

	tests := []struct {
		name string
		up   Upload
		kind fiscalerr.Kind
	}{
		{"no file", Upload{Password: "x"}, fiscalerr.KindMissingField},
		{"no password", Upload{Filename: "a.pfx", Content: valid.Content}, fiscalerr.KindMissingField},
		{"wrong extension", Upload{Filename: "a.pem", Content: valid.Content, Password: valid.Password}, fiscalerr.KindValidation},
		{"too large", Upload{Content: make([]byte, MaxCertificateBytes+1), Password: "x"}, fiscalerr.KindValidation},
		{"wrong password", Upload{Filename: "a.p12", Content: valid.Content, Password: "wrong"}, fiscalerr.KindInvalidPassword},
		{"garbage", Upload{Filename: "a.pfx", Content: []byte("not a pfx"), Password: "x"}, fiscalerr.KindInvalidCertificate},
		{"expired", upload(t, testpki.Options{
			NotBefore: time.Now().Add(-48 * time.Hour),
			NotAfter:  time.Now().Add(-24 * time.Hour),
		}), fiscalerr.KindInvalidCertificate},
		{"no cnpj", upload(t, testpki.Options{CommonName: "SEM CNPJ"}), fiscalerr.KindInvalidCertificate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Setup(ctx, tt.up)
			require.Error(t, err)
			assert.Equal(t, tt.kind, fiscalerr.KindOf(err), err.Error())
		})
	}
}

func TestStatus(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)

	st, err := svc.Status(ctx, res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "52.507.723/0001-85", st.Certificate.CNPJ)
	assert.True(t, st.Certificate.ValidUntil.Equal(res.Certificate.ValidUntil))
	assert.Equal(t, st.Account.CreatedAt, st.Account.UpdatedAt)

	_, err = svc.Status(ctx, uuid.NewString())
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindAccountNotFound))
}

func TestRotateCertificate(t *testing.T) {
	svc, store, c := newService(t)
	certs := newProvider(t, store, c)
	ctx := context.Background()

	res, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)
	before, err := certs.Load(ctx, res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "EMPRESA DE TESTE LTDA:52507723000185", before.Credentials.Certificate.Subject.CommonName)

	later := time.Now().Add(time.Hour)
	svc.now = func() time.Time { return later }

	newer := upload(t, testpki.Options{
		CommonName: "EMPRESA NOVA LTDA:52507723000185",
		NotAfter:   time.Now().Add(48 * time.Hour),
	})
	summary, err := svc.RotateCertificate(ctx, res.APIKey, newer)
	require.NoError(t, err)
	assert.Equal(t, "EMPRESA NOVA LTDA", summary.CompanyName)

	after, err := certs.Load(ctx, res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "EMPRESA NOVA LTDA:52507723000185", after.Credentials.Certificate.Subject.CommonName)

	account, err := store.GetAccount(ctx, res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "EMPRESA NOVA LTDA", account.Metadata.CompanyName)
	assert.True(t, account.Metadata.UpdatedAt.After(account.Metadata.CreatedAt))

	_, err = svc.RotateCertificate(ctx, uuid.NewString(), newer)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindAccountNotFound))
}

func TestRotateCertificate_CNPJTakenByAnotherAccount(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)
	_, err = svc.Setup(ctx, upload(t, testpki.Options{CommonName: "OUTRA EMPRESA:11222333000181"}))
	require.NoError(t, err)

	_, err = svc.RotateCertificate(ctx, first.APIKey, upload(t, testpki.Options{CommonName: "OUTRA EMPRESA:11222333000181"}))
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindAccountExists))
}

func TestDelete(t *testing.T) {
	svc, store, c := newService(t)
	certs := newProvider(t, store, c)
	ctx := context.Background()

	res, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)
	_, err = certs.Load(ctx, res.APIKey)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, res.APIKey))
	_, err = certs.Load(ctx, res.APIKey)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindCertificateNotFound))

	err = svc.Delete(ctx, res.APIKey)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindAccountNotFound))
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Setup(ctx, upload(t, testpki.Options{}))
	require.NoError(t, err)
	require.NoError(t, svc.Authenticate(ctx, res.APIKey))

	for _, key := range []string{"", "abc", uuid.NewString()} {
		err := svc.Authenticate(ctx, key)
		assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindInvalidAPIKey), key)
	}
}

func TestFormatCNPJ(t *testing.T) {
	assert.Equal(t, "11.222.333/0001-81", FormatCNPJ("11222333000181"))
	assert.Equal(t, "123", FormatCNPJ("123"))
}
