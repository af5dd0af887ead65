package security

import "testing"

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("GenerateNumericCode returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %d", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit character in code: %q", code)
		}
	}
}

func TestGenerateNumericCodeDigitsUniform(t *testing.T) {
	// Enough digits that folding bytes 250..255 onto 0..5 without
	// rejection would skew counts far outside the tolerance.
	const codes = 50000
	var counts [10]int
	for i := 0; i < codes; i++ {
		code, err := GenerateNumericCode(6)
		if err != nil {
			t.Fatalf("GenerateNumericCode returned error: %v", err)
		}
		for _, r := range code {
			counts[r-'0']++
		}
	}

	expected := codes * 6 / 10
	for digit, count := range counts {
		if count < expected*98/100 || count > expected*102/100 {
			t.Fatalf("digit %d appeared %d times, expected about %d", digit, count, expected)
		}
	}
}

func TestGenerateNumericCodeRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := GenerateNumericCode(-3); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestCodesEqual(t *testing.T) {
	if !CodesEqual("482913", "482913") {
		t.Fatal("identical codes must compare equal")
	}
	if CodesEqual("482913", "482914") {
		t.Fatal("different codes must not compare equal")
	}
	if CodesEqual("482913", "48291") {
		t.Fatal("codes of different length must not compare equal")
	}
}
