package metrics

// RVOL returns currentVolume / mean(volumes) using the last `period`
// entries of volumes (oldest-first). Undefined (nil) if fewer than
// `period` samples exist, or if the mean is zero — RVOL is never
// reported as +Inf (§8 boundary behavior).
func RVOL(currentVolume float64, volumes []float64, period int) *float64 {
	if period < 1 || len(volumes) < period {
		return nil
	}
	window := volumes[len(volumes)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)
	if mean == 0 {
		return nil
	}
	v := currentVolume / mean
	return &v
}
