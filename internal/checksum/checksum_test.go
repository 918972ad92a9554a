package checksum

import "testing"

func TestMatches(t *testing.T) {
	data := []byte("# 2024-02-10\n")
	sum := Sum(data)

	tests := []struct {
		name string
		tag  string
		want bool
	}{
		{"empty", "", true},
		{"wildcard", "*", true},
		{"bare", sum, true},
		{"quoted", ETag(sum), true},
		{"weak", "W/" + ETag(sum), true},
		{"stale", ETag(Sum([]byte("old"))), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(data, tc.tag); got != tc.want {
				t.Errorf("Matches(%q) = %v, want %v", tc.tag, got, tc.want)
			}
		})
	}
}
