package id

import (
	"sort"
	"testing"
)

func TestNew_UniqueAndSortable(t *testing.T) {
	const n = 1000

	ids := make([]string, n)
	seen := make(map[string]bool, n)
	for i := range ids {
		ids[i] = New()
		if seen[ids[i]] {
			t.Fatalf("duplicate id: %s", ids[i])
		}
		seen[ids[i]] = true
	}

	// Monotonic entropy keeps ids generated in sequence lexically ordered.
	if !sort.StringsAreSorted(ids) {
		t.Fatal("ids generated in sequence must sort in creation order")
	}

	if len(ids[0]) != 26 {
		t.Fatalf("ulid length = %d, want 26", len(ids[0]))
	}
}
