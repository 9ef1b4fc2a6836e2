package model

import "time"

// Bar represents one OHLCV bar for a fixed time bucket (1-minute here).
// Time is the natural sort and dedup key within one instrument/timeframe series.
type Bar struct {
	Time   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSane reports whether low <= open,close <= high holds. A violation is a
// data-quality warning, not a reason to reject the bar.
func (b Bar) PriceSane() bool {
	return b.Low <= b.Open && b.Low <= b.Close &&
		b.Open <= b.High && b.Close <= b.High
}
