package format

import (
	"testing"
	"time"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{15, "$15.00"},
		{990, "$990.00"},
		{1234.5, "$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{-42.1, "-$42.10"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Money(tt.in); got != tt.want {
				t.Errorf("Money(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumberAndPercent(t *testing.T) {
	if got := Number(23000); got != "23,000" {
		t.Errorf("Number(23000) = %q", got)
	}
	if got := Percent(18); got != "18.00%" {
		t.Errorf("Percent(18) = %q", got)
	}
	if got := Percent(29.99); got != "29.99%" {
		t.Errorf("Percent(29.99) = %q", got)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		months int
		want   string
	}{
		{0, "0 months"},
		{1, "1 month"},
		{11, "11 months"},
		{12, "1 year"},
		{13, "1 year 1 month"},
		{62, "5 years 2 months"},
		{600, "50 years"},
	}

	for _, tt := range tests {
		if got := Duration(tt.months); got != tt.want {
			t.Errorf("Duration(%d) = %q, want %q", tt.months, got, tt.want)
		}
	}
}

func TestMonthYear(t *testing.T) {
	if got := MonthYear(time.Date(2031, 12, 19, 0, 0, 0, 0, time.UTC)); got != "December 2031" {
		t.Errorf("MonthYear = %q", got)
	}
	if got := MonthYear(time.Time{}); got != "" {
		t.Errorf("MonthYear(zero) = %q, want empty", got)
	}
}
