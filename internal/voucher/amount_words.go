package voucher

import (
	"math"
	"strings"

	"github.com/garyjia/voucher-sync/pkg/utils"
)

var (
	ones = []string{
		"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells a numeric amount in Indian numbering, e.g.
// "1,25,000.50" -> "Rupees One Lakh Twenty Five Thousand and Fifty Paise Only".
// It returns "" when amount is not a non-negative number.
func AmountInWords(amount string) string {
	value, ok := utils.ParseAmount(amount)
	if !ok || value < 0 || value >= 1e15 {
		return ""
	}

	total := int64(math.Round(value * 100))
	rupees := total / 100
	paise := int(total % 100)

	words := "Rupees " + integerWords(rupees)
	if paise > 0 {
		words += " and " + twoDigits(paise) + " Paise"
	}
	return words + " Only"
}

// integerWords groups n as crore, lakh, thousand and hundreds
func integerWords(n int64) string {
	if n == 0 {
		return "Zero"
	}

	var parts []string
	if crore := n / 10000000; crore > 0 {
		parts = append(parts, integerWords(crore)+" Crore")
		n %= 10000000
	}
	if lakh := n / 100000; lakh > 0 {
		parts = append(parts, twoDigits(int(lakh))+" Lakh")
		n %= 100000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, twoDigits(int(thousand))+" Thousand")
		n %= 1000
	}
	if n > 0 {
		parts = append(parts, threeDigits(int(n)))
	}
	return strings.Join(parts, " ")
}

func threeDigits(n int) string {
	if n < 100 {
		return twoDigits(n)
	}
	s := ones[n/100] + " Hundred"
	if rest := n % 100; rest > 0 {
		s += " " + twoDigits(rest)
	}
	return s
}

func twoDigits(n int) string {
	if n < 20 {
		return ones[n]
	}
	s := tens[n/10]
	if n%10 > 0 {
		s += " " + ones[n%10]
	}
	return s
}
