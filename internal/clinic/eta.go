package clinic

// Estimator turns a queue length into minutes of expected wait. Consultations
// are assumed to run on Providers doctors in parallel.
type Estimator struct {
	OverheadMinutes int
	ServiceMinutes  int
	Providers       int
}

// Estimate returns overhead + ceil(count/providers) * service.
func (e Estimator) Estimate(count int) int {
	if count < 0 {
		count = 0
	}
	providers := e.Providers
	if providers <= 0 {
		providers = 1
	}
	rounds := (count + providers - 1) / providers
	return e.OverheadMinutes + rounds*e.ServiceMinutes
}
