package approval

import (
	"errors"
	"math"
	"testing"
)

func TestConvert_SameCurrencyIsExact(t *testing.T) {
	rates := RateTable{"USD": 1, "EUR": 0.92}

	amounts := []float64{0, 0.1, 99.99, 271.74, 1e9}
	for _, amount := range amounts {
		got, err := Convert(amount, "EUR", "EUR", rates)
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if got != amount {
			t.Errorf("Convert(%v, EUR, EUR) = %v, want exact input", amount, got)
		}
	}

	// Identity conversion must not consult the table at all
	if got, err := Convert(42, "XXX", "XXX", rates); err != nil || got != 42 {
		t.Errorf("Convert(42, XXX, XXX) = %v, %v, want 42, nil", got, err)
	}
}

func TestConvert_CrossCurrency(t *testing.T) {
	rates := RateTable{"USD": 1, "EUR": 0.92, "GBP": 0.79}

	got, err := Convert(250, "EUR", "USD", rates)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	want := 250 / 0.92
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Convert(250, EUR, USD) = %v, want %v", got, want)
	}

	got, err = Convert(100, "USD", "GBP", rates)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if math.Abs(got-79) > 1e-9 {
		t.Errorf("Convert(100, USD, GBP) = %v, want 79", got)
	}
}

func TestConvert_MissingCurrency(t *testing.T) {
	rates := RateTable{"USD": 1}

	tests := []struct {
		name string
		from string
		to   string
	}{
		{"missing source", "EUR", "USD"},
		{"missing target", "USD", "EUR"},
		{"both missing", "EUR", "GBP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(100, tt.from, tt.to, rates)
			if !errors.Is(err, ErrConversionUnavailable) {
				t.Errorf("Convert() error = %v, want ErrConversionUnavailable", err)
			}
		})
	}
}

func TestConvert_ZeroRateIsUnavailable(t *testing.T) {
	rates := RateTable{"USD": 1, "BAD": 0}

	_, err := Convert(100, "BAD", "USD", rates)
	if !errors.Is(err, ErrConversionUnavailable) {
		t.Errorf("Convert() error = %v, want ErrConversionUnavailable", err)
	}
}
