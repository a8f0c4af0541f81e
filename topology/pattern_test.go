package topology_test

import (
	"testing"

	"github.com/next-trace/scg-testbroker/topology"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"logs.info", "logs.info", true},
		{"logs.info", "logs.error", false},
		{"logs", "logs.info", false},
		{"", "", true},
		{"*.stops", "a.stops", true},
		{"*.stops", "a.b.stops", false},
		{"*.stops", "stops", false},
		{"a.*", "a", false},
		{"*.*", "a.b", true},
		{"#", "a", true},
		{"#", "a.b.c", true},
		{"#", "", true},
		{"a.#", "a", true},
		{"a.#", "a.b.c", true},
		{"a.#", "b.a", false},
		{"#.b", "b", true},
		{"#.b", "a.x.b", true},
		{"#.b", "a.b.c", false},
		{"a.#.b", "a.b", true},
		{"a.#.b", "a.x.b", true},
		{"a.#.b", "a.x.y.b", true},
		{"a.#.b", "a.x.y.c", false},
		{"a.#.b", "a.b.x", false},
		{"a.#.*.c", "a.x.c", true},
		{"a.#.*.c", "a.c", false},
		{"a.#.*.*", "a.x", false},
		{"a.#.*.*", "a.x.y.z", true},
		{"#.a.b", "a.a.b", true},
		{"#.#", "a.b", true},
		{"a.*.#", "a.b", true},
		{"a.*.#", "a", false},
		{"*.#.z", "a.z", true},
		{"*.#.z", "z", false},
	}

	for _, tc := range tests {
		if got := topology.MatchPattern(tc.pattern, tc.key); got != tc.want {
			t.Fatalf("MatchPattern(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}

func TestMatchPattern_LiteralIsEquality(t *testing.T) {
	keys := []string{"a", "a.b", "a.b.c", "orders.created", "", "x..y"}

	for _, p := range keys {
		for _, k := range keys {
			if got := topology.MatchPattern(p, k); got != (p == k) {
				t.Fatalf("MatchPattern(%q, %q) = %v, want %v", p, k, got, p == k)
			}
		}
	}
}
