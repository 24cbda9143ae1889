package text

import (
	"sync"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Asuna", "asuna"},
		{"asuna ", "asuna"},
		{"  ASUNA  YUUKI ", "asuna yuuki"},
		{"Ryūko Matoi", "ryuko matoi"},
		{"ryuko-matoi", "ryuko matoi"},
		{"Misaki Ayuzawá", "misaki ayuzawa"},
		{"Rem!", "rem"},
		{"D.Va", "d va"},
		{"ZERO2", "zero2"},
		{"", ""},
		{"   ", ""},
		{"!!!", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

// Guess resolution normalizes from many chat goroutines at once; run under
// -race to catch shared state in the diacritic transformer.
func TestNormalizeConcurrent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ryūko Matoi", "ryuko matoi"},
		{"Misaki Ayuzawá", "misaki ayuzawa"},
		{"Asuna Yuuki", "asuna yuuki"},
		{"D.Va", "d va"},
	}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				tc := cases[i%len(cases)]
				if got := Normalize(tc.in); got != tc.want {
					t.Errorf("Normalize(%q) = %q; want %q", tc.in, got, tc.want)
				}
			}
		}()
	}
	wg.Wait()
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Asuna Yuuki", "Ryūko Matoi", "d.va", "Nezuko  Kamado"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
