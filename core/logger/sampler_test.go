package logger

import "testing"

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	allowed := 0
	for i := 0; i < 50; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 20 {
		t.Fatalf("allowed = %d, want 20", allowed)
	}

	s.Set(0, 0)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("zero ratio should allow everything")
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	tests := []struct {
		in       string
		num, den int
	}{
		{"1/50", 1, 50},
		{" 3 / 10 ", 3, 10},
		{"20", 1, 20},
		{"0", 0, 0},
		{"a/b", 0, 0},
		{"", 0, 0},
	}
	for _, tt := range tests {
		num, den := parseRatioSpec(tt.in)
		if num != tt.num || den != tt.den {
			t.Errorf("parseRatioSpec(%q) = %d/%d, want %d/%d", tt.in, num, den, tt.num, tt.den)
		}
	}
}

func TestCompactRIDAndSanitize(t *testing.T) {
	if got := CompactRID("35:-100:7"); got != "z.-2s.7" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID changed foreign input: %q", got)
	}
	if got := SanitizeLimit("a\x00b\u200bc\nd", 4); got != "abc\n" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
