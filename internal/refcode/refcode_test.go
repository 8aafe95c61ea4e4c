package refcode

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code := New("ISS")

		if !strings.HasPrefix(code, "ISS-") {
			t.Fatalf("code %q should start with prefix", code)
		}

		if len(code) != len("ISS-")+CodeLen {
			t.Fatalf("code %q has wrong length", code)
		}

		for _, r := range code[len("ISS-"):] {
			if !strings.ContainsRune(string(alphabet), r) {
				t.Fatalf("code %q contains character outside alphabet", code)
			}
		}

		if seen[code] {
			t.Fatalf("code %q generated twice in 100 draws", code)
		}

		seen[code] = true
	}
}
