package voucher

import (
	"testing"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"zero", "0", "Rupees Zero Only"},
		{"teens", "19", "Rupees Nineteen Only"},
		{"hundreds", "500", "Rupees Five Hundred Only"},
		{"thousands with commas", "1,500", "Rupees One Thousand Five Hundred Only"},
		{"lakh", "1,25,000", "Rupees One Lakh Twenty Five Thousand Only"},
		{"crore", "12345678", "Rupees One Crore Twenty Three Lakh Forty Five Thousand Six Hundred Seventy Eight Only"},
		{"hundred crore", "1000000000", "Rupees One Hundred Crore Only"},
		{"paise", "10.50", "Rupees Ten and Fifty Paise Only"},
		{"rounded paise", "₹ 99.999", "Rupees One Hundred Only"},
		{"not a number", "ten", ""},
		{"empty", "", ""},
		{"negative", "-5", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountInWords(tt.amount)
			if got != tt.want {
				t.Errorf("AmountInWords(%q) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}
