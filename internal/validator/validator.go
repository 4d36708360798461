package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidUsername    = errors.New("username must be 3-30 letters, digits, spaces or underscores")
	ErrDescriptionTooLong = errors.New("description too long")
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_ ]{3,30}$`)

func ValidateUsername(username string) error {
	collapsed := strings.Join(strings.Fields(username), " ")
	if collapsed != username || !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidateDescription(description string) error {
	if len(description) > 280 {
		return ErrDescriptionTooLong
	}
	return nil
}
