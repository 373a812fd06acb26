package metrics

import (
	"testing"

	"breakoutengine/pkg/types"
)

func TestPinbar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		c    types.Candle
		want types.PinbarType
	}{
		{
			name: "zero range is never a pinbar",
			c:    candleAt(0, 100, 100, 100, 100),
			want: types.PinbarNone,
		},
		{
			name: "long lower wick, small body, tiny upper wick is bullish",
			c:    candleAt(0, 99.5, 100, 90, 99.8),
			want: types.PinbarBullish,
		},
		{
			name: "long upper wick, small body, tiny lower wick is bearish",
			c:    candleAt(0, 100.2, 110, 100, 100.1),
			want: types.PinbarBearish,
		},
		{
			name: "large body disqualifies regardless of wicks",
			c:    candleAt(0, 90, 110, 89, 109),
			want: types.PinbarNone,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Pinbar(tt.c); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
