package accesskey

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

func referenceParams() Params {
	return Params{
		StateCode:    35,
		EmissionDate: "2024-01-15T10:00:00-03:00",
		TaxpayerID:   "52507723000185",
		Model:        55,
		Series:       1,
		Number:       511,
		EmissionType: 1,
		RandomCode:   "12345678",
	}
}

func TestCompute_ReferenceKey(t *testing.T) {
	key, err := Compute(referenceParams())
	require.NoError(t, err)

	assert.Equal(t, "35240152507723000185550010000005111123456782", key.Value)
	assert.Len(t, key.Value, KeyLength)
	assert.Equal(t, "12345678", key.RandomCode)
	assert.Equal(t, 2, key.CheckDigit)

	// Field layout
	assert.Equal(t, "35", key.Value[0:2])
	assert.Equal(t, "2401", key.Value[2:6])
	assert.Equal(t, "52507723000185", key.Value[6:20])
	assert.Equal(t, "55", key.Value[20:22])
	assert.Equal(t, "001", key.Value[22:25])
	assert.Equal(t, "000000511", key.Value[25:34])
	assert.Equal(t, "1", key.Value[34:35])
	assert.Equal(t, "12345678", key.Value[35:43])

	assert.NoError(t, Validate(key.Value))
}

func TestCompute_Deterministic(t *testing.T) {
	first, err := Compute(referenceParams())
	require.NoError(t, err)
	second, err := Compute(referenceParams())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_FormattedTaxpayerAndCPF(t *testing.T) {
	p := referenceParams()
	p.TaxpayerID = "52.507.723/0001-85"
	key, err := Compute(p)
	require.NoError(t, err)
	assert.Equal(t, "35240152507723000185550010000005111123456782", key.Value)

	p.TaxpayerID = "123.456.789-09"
	key, err = Compute(p)
	require.NoError(t, err)
	assert.Equal(t, "00012345678909", key.Value[6:20])
}

func TestCompute_GeneratesRandomCode(t *testing.T) {
	p := referenceParams()
	p.RandomCode = ""

	key, err := Compute(p)
	require.NoError(t, err)
	assert.Len(t, key.RandomCode, 8)
	assert.NotEqual(t, "00000000", key.RandomCode)
	assert.Equal(t, key.RandomCode, key.Value[35:43])
	assert.NoError(t, Validate(key.Value))
}

func TestCompute_ShortRandomCodeIsPadded(t *testing.T) {
	p := referenceParams()
	p.RandomCode = "42"
	key, err := Compute(p)
	require.NoError(t, err)
	assert.Equal(t, "00000042", key.RandomCode)
}

func TestCompute_InvalidKeyLength(t *testing.T) {
	p := referenceParams()
	p.Number = 1234567890 // ten digits overflow nNF

	_, err := Compute(p)
	require.Error(t, err)
	assert.Equal(t, fiscalerr.KindInvalidKeyLength, fiscalerr.KindOf(err))
}

func TestCompute_BadEmissionDate(t *testing.T) {
	p := referenceParams()
	p.EmissionDate = "15/01"

	_, err := Compute(p)
	require.Error(t, err)
	assert.Equal(t, fiscalerr.KindDocumentBuild, fiscalerr.KindOf(err))
}

func TestCheckDigit_Range(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := 0; j < BodyLength; j++ {
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
		dv, err := CheckDigit(b.String())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, dv, 0)
		assert.LessOrEqual(t, dv, 9)
	}
}

func TestCheckDigit_LowRemainderIsZero(t *testing.T) {
	// 43 zeros sum to 0, remainder 0
	dv, err := CheckDigit(strings.Repeat("0", BodyLength))
	require.NoError(t, err)
	assert.Equal(t, 0, dv)

	// "1" alone weighs 2, remainder 2, digit 9
	dv, err = CheckDigit("1")
	require.NoError(t, err)
	assert.Equal(t, 9, dv)
}

func TestCheckDigit_RejectsNonDigits(t *testing.T) {
	_, err := CheckDigit("12a4")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("35240152507723000185550010000005111123456782"))
	assert.Error(t, Validate("35240152507723000185550010000005111123456783"))
	assert.Error(t, Validate("3524015250772300018555001000000511112345678"))
	assert.Error(t, Validate("3524015250772300018555001000000511112345678X"))
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "35", StateCode("35240152507723000185550010000005111123456782"))
	assert.Equal(t, "", StateCode("3"))
}
