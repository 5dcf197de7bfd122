package household

import "time"

// Polynomial holds coefficients in increasing degree order: c0 + c1*x + c2*x^2 ...
// It is used both as an on-probability density and as a background-load curve,
// sampled at the hour of day.
type Polynomial []float64

func (p Polynomial) Sample(x float64) float64 {
	var y float64
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

// sampleHour is the point at which on-probability densities are sampled:
// hour + minute/60 of t in its location.
func sampleHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
