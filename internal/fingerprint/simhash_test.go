package fingerprint

import "testing"

func TestSimhash64_Deterministic(t *testing.T) {
	text := "Fed holds rates steady as inflation cools to 2.4 percent"

	a, ok := Simhash64(text)
	if !ok {
		t.Fatal("expected a fingerprint for non-empty text")
	}
	b, _ := Simhash64(text)

	if a != b {
		t.Errorf("same text produced different fingerprints: %d vs %d", a, b)
	}
}

func TestSimhash64_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "a ! ?"} {
		if _, ok := Simhash64(text); ok {
			t.Errorf("expected no fingerprint for %q", text)
		}
	}
}

func TestSimhash64_SmallEditSmallDistance(t *testing.T) {
	a, _ := Simhash64("Apple reports record quarterly revenue of 123.9 billion dollars beating analyst expectations for the holiday quarter")
	b, _ := Simhash64("Apple reports record quarterly revenue of 123.9 billion dollars topping analyst expectations for the holiday quarter")

	if dist := HammingDistance(a, b); dist > 10 {
		t.Errorf("one-word edit should stay close, got distance %d", dist)
	}
}

func TestSimhash64_DifferentTextsDiverge(t *testing.T) {
	a, _ := Simhash64("Central bank raises interest rates by fifty basis points amid persistent inflation")
	b, _ := Simhash64("Biotech startup announces breakthrough in early cancer detection screening trial")

	if dist := HammingDistance(a, b); dist < 10 {
		t.Errorf("unrelated texts should diverge, got distance %d", dist)
	}
}

func TestHammingDistance_ExactBitCount(t *testing.T) {
	cases := []struct {
		name string
		a, b int64
		want int
	}{
		{"identical", 0x0F0F, 0x0F0F, 0},
		{"one bit", 0, 1, 1},
		{"two bits", 0b1011, 0b0001, 2},
		{"sign bit", 0, -9223372036854775808, 1},
		{"all bits", -1, 0, 64},
	}

	for _, tc := range cases {
		if got := HammingDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: HammingDistance(%d, %d) = %d, want %d", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
}
