package symbol

import "testing"

func TestCanonicalSortsAndDedupes(t *testing.T) {
	e := Event{"b", "a", "b", "c"}
	got := e.Canonical()
	want := Event{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		sym  string
		ok   bool
	}{
		{"empty", "", false},
		{"plain", "hello", true},
		{"vector-ok", VectorPrefix + "0123456789abcdef0123456789abcdef01234567", true},
		{"vector-short", VectorPrefix + "abc", false},
		{"pattern-bad-char", PatternPrefix + "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Validate(c.sym)
			if (err == nil) != c.ok {
				t.Errorf("Validate(%q) err=%v, want ok=%v", c.sym, err, c.ok)
			}
		})
	}
}

func TestPatternNameDeterministic(t *testing.T) {
	seq := []Event{{"a", "b"}, {"c"}}
	n1 := PatternName(seq)
	n2 := PatternName(seq)
	if n1 != n2 {
		t.Errorf("PatternName not deterministic: %s != %s", n1, n2)
	}
	if n1[:len(PatternPrefix)] != PatternPrefix {
		t.Errorf("PatternName missing prefix: %s", n1)
	}
}

func TestVectorNameDiffersByVector(t *testing.T) {
	n1 := VectorName([]float32{1, 2, 3})
	n2 := VectorName([]float32{1, 2, 4})
	if n1 == n2 {
		t.Errorf("expected different names for different vectors")
	}
}

func TestLength(t *testing.T) {
	seq := []Event{{"a", "b"}, {"c"}}
	if got := Length(seq); got != 3 {
		t.Errorf("Length = %d, want 3", got)
	}
}
