package codes

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestParseDepositCode(t *testing.T) {
	cases := []struct {
		in         string
		amount     int64
		normalized string
	}{
		{"DEP-50-AB12CD", 50, "DEP-50-AB12CD"},
		{"dep-50-ab12cd", 50, "DEP-50-AB12CD"},
		{"  DEP-12345-TOKEN99  ", 12345, "DEP-12345-TOKEN99"},
		{"DEP-1-abcd", 1, "DEP-1-ABCD"},
	}
	for _, c := range cases {
		amount, normalized, err := ParseDepositCode(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c.in, err)
		}
		if amount != c.amount || normalized != c.normalized {
			t.Fatalf("%q: got %d %q, want %d %q", c.in, amount, normalized, c.amount, c.normalized)
		}
	}
}

func TestParseDepositCodeMalformed(t *testing.T) {
	bad := []string{
		"",
		"DEP-50",
		"DEP--AB12CD",
		"DEP-123456-AB12CD", // amount too long
		"DEP-50-ABC",        // token too short
		"DEP-50-ABCDEFGHIJKLMNOPQ",
		"DEP-50-AB 12CD",
		"XDEP-50-AB12CD",
		"DEP-50-AB12CD-EXTRA",
	}
	for _, in := range bad {
		if _, _, err := ParseDepositCode(in); !errors.Is(err, ErrMalformedCode) {
			t.Fatalf("%q: expected ErrMalformedCode, got %v", in, err)
		}
	}
}

func TestRegistryIssueAndFind(t *testing.T) {
	reg := NewRegistry(testNow)
	row, err := reg.Issue(testNow, "frontier-abc123", Package{Title: "Frontier", SignOnBonus: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Code != "FRONTIER-ABC123" || row.Status != StatusNew {
		t.Fatalf("unexpected issued code: %#v", row)
	}
	found, ok := reg.Find("  frontier-ABC123 ")
	if !ok || found.Package.SignOnBonus != 500 {
		t.Fatalf("issued code not found: %#v ok=%v", found, ok)
	}
	if _, err := reg.Issue(testNow, "FRONTIER-ABC123", Package{}); err == nil {
		t.Fatal("duplicate issue should fail")
	}
	if _, err := reg.Issue(testNow, "   ", Package{}); !errors.Is(err, ErrMalformedCode) {
		t.Fatalf("blank code: expected ErrMalformedCode, got %v", err)
	}
}

func TestRegistryMarkUsedIsPermanent(t *testing.T) {
	reg := NewRegistry(testNow)
	if _, err := reg.Issue(testNow, "DEP-50-AB12CD", Package{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.MarkUsed(testNow, "dep-50-ab12cd", "user-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, _ := reg.Find("DEP-50-AB12CD")
	if row.Status != StatusUsed || row.UsedBy != "user-2" || row.UsedAt == "" {
		t.Fatalf("used state not stamped: %#v", row)
	}
	if err := reg.MarkUsed(testNow, "DEP-50-AB12CD", "user-3"); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
	if err := reg.MarkUsed(testNow, "DEP-99-ZZ99XX", "user-2"); !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
}

func TestRegistryCloneIsIndependent(t *testing.T) {
	reg := NewRegistry(testNow)
	_, _ = reg.Issue(testNow, "DEP-50-AB12CD", Package{})

	dup := reg.Clone()
	if err := dup.MarkUsed(testNow, "DEP-50-AB12CD", "user-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, _ := reg.Find("DEP-50-AB12CD")
	if row.Status != StatusNew {
		t.Fatalf("clone mutation leaked: %#v", row)
	}
}
