package money_test

import (
	"encoding/json"
	"testing"

	"kasir/internal/money"

	"github.com/stretchr/testify/require"
)

func TestFormatRupiah(t *testing.T) {
	cases := map[float64]string{
		0:        "Rp 0",
		500:      "Rp 500",
		12500:    "Rp 12.500",
		1000000:  "Rp 1.000.000",
		4666.67:  "Rp 4.667",
		-1500:    "-Rp 1.500",
		99999.49: "Rp 99.999",
	}
	for in, want := range cases {
		require.Equal(t, want, money.FormatRupiah(in), "input %v", in)
	}
}

func TestAmountAcceptsStringsAndNumbers(t *testing.T) {
	var payload struct {
		Normal   money.Amount `json:"harga_jual_normal"`
		Reseller money.Amount `json:"harga_jual_reseller"`
		Stock    money.Amount `json:"stok"`
		Empty    money.Amount `json:"kosong"`
	}
	err := json.Unmarshal([]byte(`{"harga_jual_normal":"10000.00","harga_jual_reseller":null,"stok":12.5,"kosong":""}`), &payload)
	require.NoError(t, err)
	require.Equal(t, 10000.0, payload.Normal.Float())
	require.Zero(t, payload.Reseller.Float())
	require.Equal(t, 12.5, payload.Stock.Float())
	require.Zero(t, payload.Empty.Float())
}

func TestAmountRejectsGarbage(t *testing.T) {
	var a money.Amount
	require.Error(t, json.Unmarshal([]byte(`"abc"`), &a))
}
