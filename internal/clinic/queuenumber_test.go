package clinic

import "testing"

func TestNextQueueNumber(t *testing.T) {
	tests := []struct {
		last string
		want string
	}{
		{"", "0000"},
		{"0000", "0001"},
		{"0041", "0042"},
		{"0999", "1000"},
		{"9999", "0000"},
		{"A123", "0000"},
		{"123", "0000"},
		{"12345", "0000"},
		{" 123", "0000"},
	}

	for _, tt := range tests {
		if got := NextQueueNumber(tt.last); got != tt.want {
			t.Errorf("NextQueueNumber(%q) = %q, want %q", tt.last, got, tt.want)
		}
	}
}

func TestNextQueueNumberCyclesWithoutRepeats(t *testing.T) {
	seen := make(map[string]bool, queueNumberModulo)
	last := ""
	for i := 0; i < queueNumberModulo; i++ {
		last = NextQueueNumber(last)
		if seen[last] {
			t.Fatalf("number %s issued twice within one cycle", last)
		}
		seen[last] = true
	}
	if next := NextQueueNumber(last); next != "0000" {
		t.Fatalf("after a full cycle got %s, want 0000", next)
	}
}
