package clinic

import "testing"

func TestEstimate(t *testing.T) {
	parallel := Estimator{OverheadMinutes: 10, ServiceMinutes: 12, Providers: 2}
	linear := Estimator{OverheadMinutes: 5, ServiceMinutes: 15, Providers: 0}

	tests := []struct {
		name  string
		est   Estimator
		count int
		want  int
	}{
		{"empty queue", parallel, 0, 10},
		{"one waiting", parallel, 1, 22},
		{"two share a round", parallel, 2, 22},
		{"three need two rounds", parallel, 3, 34},
		{"negative clamps", parallel, -4, 10},
		{"zero providers is linear", linear, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.est.Estimate(tt.count); got != tt.want {
				t.Errorf("Estimate(%d) = %d, want %d", tt.count, got, tt.want)
			}
		})
	}
}

func TestEstimateIsMonotonic(t *testing.T) {
	e := Estimator{OverheadMinutes: 10, ServiceMinutes: 12, Providers: 3}
	prev := e.Estimate(0)
	for n := 1; n <= 50; n++ {
		got := e.Estimate(n)
		if got < prev {
			t.Fatalf("Estimate(%d) = %d dropped below Estimate(%d) = %d", n, got, n-1, prev)
		}
		prev = got
	}
}
