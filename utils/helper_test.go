package utils

import (
	"testing"
)

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("12.5")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "12.5" {
		t.Errorf("got %s, want 12.5", d)
	}

	if _, err := ParseDecimal("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
	if _, err := ParseDecimal(""); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{1, 2, 2, 3, 1})
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 unique values", got)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	if !IsValidEmail("owner@bakery.example.com") {
		t.Error("valid email rejected")
	}
	if IsValidEmail("not-an-email") {
		t.Error("invalid email accepted")
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Error("empty string should give nil")
	}
	if ptr := NilIfEmpty("x"); ptr == nil || *ptr != "x" {
		t.Error("non-empty string should round-trip")
	}
}
