package metrics

import "breakoutengine/pkg/types"

// Pinbar classifies a single closed bar per §4.3. A zero-range candle
// is never a pinbar.
func Pinbar(c types.Candle) types.PinbarType {
	r := c.Range()
	if r <= 0 {
		return types.PinbarNone
	}
	body := c.Body()
	upper := c.UpperWick()
	lower := c.LowerWick()

	if body > 0.4*r {
		return types.PinbarNone
	}
	if lower >= 0.66*r && upper <= 0.1*r {
		return types.PinbarBullish
	}
	if upper >= 0.66*r && lower <= 0.1*r {
		return types.PinbarBearish
	}
	return types.PinbarNone
}
