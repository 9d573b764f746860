package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount is a decimal value as the API sends it: DRF renders decimals as
// strings ("12500.00") while computed fields may be plain numbers.
type Amount float64

func (a Amount) Float() float64 {
	return float64(a)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", s, err)
		}
		*a = Amount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

var printer = message.NewPrinter(language.Indonesian)

// FormatRupiah renders v as "Rp 12.500", rounded to whole rupiah.
func FormatRupiah(v float64) string {
	amount := int64(math.Round(v))
	if amount < 0 {
		return printer.Sprintf("-Rp %d", -amount)
	}
	return printer.Sprintf("Rp %d", amount)
}
