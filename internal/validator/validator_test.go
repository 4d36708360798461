package validator

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	good := []string{"Nova", "user 1", "abc", "Star_Gazer_99", strings.Repeat("a", 30)}
	for _, name := range good {
		if err := ValidateUsername(name); err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
	}
	bad := []string{"", "ab", strings.Repeat("a", 31), " Nova", "Nova ", "No  va", "nova!", "nóva"}
	for _, name := range bad {
		if err := ValidateUsername(name); !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("%q: expected ErrInvalidUsername, got %v", name, err)
		}
	}
}

func TestValidateDescription(t *testing.T) {
	if err := ValidateDescription(strings.Repeat("a", 280)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateDescription(strings.Repeat("a", 281)); !errors.Is(err, ErrDescriptionTooLong) {
		t.Fatalf("expected ErrDescriptionTooLong, got %v", err)
	}
}
