package utils

import (
	"fmt"
	"strings"
)

// FormatPrice renders an amount with thousands separators, e.g. 1500.5 -> "1,500.50".
// Zero renders as "Free".
func FormatPrice(amount float64) string {
	if amount <= 0 {
		return "Free"
	}

	formatted := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return strings.Join(groups, ",") + "." + decimalPart
}
