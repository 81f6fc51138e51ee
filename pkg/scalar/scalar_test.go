package scalar

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_LenientScalars(t *testing.T) {
	var v struct {
		Code   Text       `json:"code"`
		Flag   Text       `json:"flag"`
		Amount Decimal    `json:"amount"`
		Rate   *Decimal   `json:"rate"`
		Items  List[Text] `json:"items"`
		One    List[Text] `json:"one"`
		Absent *Decimal   `json:"absent"`
	}
	data := `{"code": 35, "flag": true, "amount": "10.5", "rate": 18, "items": ["a", 2], "one": "x"}`
	require.NoError(t, json.Unmarshal([]byte(data), &v))

	assert.Equal(t, Text("35"), v.Code)
	assert.Equal(t, Text("true"), v.Flag)
	assert.Equal(t, "10.50", v.Amount.Format(2))
	require.NotNil(t, v.Rate)
	assert.Equal(t, "18.0000", v.Rate.Format(4))
	assert.Equal(t, List[Text]{"a", "2"}, v.Items)
	assert.Equal(t, List[Text]{"x"}, v.One)
	assert.Nil(t, v.Absent)
}

func TestText_RejectsComposite(t *testing.T) {
	var x Text
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &x))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &x))
}

func TestText_Helpers(t *testing.T) {
	assert.True(t, Text("  ").Empty())
	assert.Equal(t, "abc", Text(" abc ").String())
	assert.Equal(t, "def", Text("").Or("def"))
	n, err := Text("42").Int()
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDecimal(t *testing.T) {
	var d Decimal
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &d))
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.Equal(t, Decimal(0), d)

	assert.Equal(t, int64(100000), Decimal(1000).Cents())
	assert.Equal(t, int64(1999), Decimal(19.99).Cents())
	assert.Equal(t, int64(12), Decimal(0.115).Cents())
	assert.Equal(t, "1.50", Dec(1.5).Format(2))
}
