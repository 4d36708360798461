package careon

import (
	"errors"
	"strconv"
	"strings"
)

const Symbol = "Ȼ"

var ErrInvalidAmount = errors.New("invalid amount")

func ParseAmount(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || !isDigits(trimmed) {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func Format(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	digits := strconv.FormatInt(value, 10)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	formatted := strings.Join(groups, ",")
	if negative {
		formatted = "-" + formatted
	}
	return formatted + " " + Symbol
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
