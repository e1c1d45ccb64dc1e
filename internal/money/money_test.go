package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{in: "10", want: 1000},
		{in: "10.5", want: 1050},
		{in: "0.005", want: 1},
		{in: "-0.005", want: -1},
		{in: "1234,56", want: 123456},
		{in: "1.234,56", want: 123456},
		{in: " 99.99 ", want: 9999},
		{in: "1.234", want: 123400},
		{in: "12.345.678", want: 1234567800},
		{in: "0.125", want: 13},
		{in: "1.5", want: 150},
		{in: "92233720368547758.08", wantErr: true},
		{in: "1e30", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1234.50", Cents(123450).String())
	assert.Equal(t, "-0.07", Cents(-7).String())
	assert.Equal(t, "R$ 1.234.567,89", Cents(123456789).BRL())
	assert.Equal(t, "-R$ 12,00", Cents(-1200).BRL())
	assert.Equal(t, "R$ 0,00", Cents(0).BRL())
}

func TestJSON(t *testing.T) {
	type payload struct {
		Valor Cents `json:"valor"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"valor": 150.259}`), &p))
	assert.Equal(t, Cents(15026), p.Valor)

	require.NoError(t, json.Unmarshal([]byte(`{"valor": "42.1"}`), &p))
	assert.Equal(t, Cents(4210), p.Valor)

	out, err := json.Marshal(payload{Valor: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"valor": 0.05}`, string(out))
}

func TestJSON_RejectsOutOfRange(t *testing.T) {
	for _, raw := range []string{`1e17`, `1e30`, `-1e30`, `"92233720368547758.08"`} {
		t.Run(raw, func(t *testing.T) {
			c := Cents(7)
			err := json.Unmarshal([]byte(raw), &c)
			require.ErrorIs(t, err, ErrOutOfRange)
			assert.Equal(t, Cents(7), c, "value must be left untouched")
		})
	}

	var c Cents
	require.NoError(t, json.Unmarshal([]byte(`92233720368547758.07`), &c))
	assert.Equal(t, Cents(math.MaxInt64), c)
}

func TestScan(t *testing.T) {
	var c Cents
	require.NoError(t, c.Scan(int64(500)))
	assert.Equal(t, Cents(500), c)

	require.NoError(t, c.Scan([]byte("730")))
	assert.Equal(t, Cents(730), c)

	require.NoError(t, c.Scan(nil))
	assert.Equal(t, Cents(0), c)

	assert.Error(t, c.Scan(true))
}
