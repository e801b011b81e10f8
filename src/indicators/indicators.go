package indicators

// Pure indicator math over close-price series, oldest value first. All
// functions are total over any input length; callers that need meaningful
// momentum/ATR values must enforce their own minimum-length precondition.

// PctChange returns the fractional change from prev to curr.
// A zero previous value yields 0 rather than a division blow-up.
func PctChange(curr, prev float64) float64 {
	if prev == 0 {
		return 0.0
	}
	return curr/prev - 1.0
}

// EMA computes an exponential moving average seeded with the first value,
// smoothing factor 2/(period+1). Output length equals input length.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// RSI computes a Wilder-smoothed relative strength index on a 0-100 scale.
// Indexes before `period` observations are neutral (50). A series shorter
// than period+1 points is neutral throughout. No losses in the window
// yields 100.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period+1 {
		for i := range out {
			out[i] = 50.0
		}
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		if diff > 0 {
			gains[i] = diff
		} else {
			losses[i] = -diff
		}
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := 0; i <= period; i++ {
		out[i] = 50.0
	}
	for i := period + 1; i < len(values); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		if avgLoss == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// ATRFromCloses computes a volatility proxy from absolute close-to-close
// differences smoothed with Wilder's recursive average. Only closes are
// available upstream, so this is not a true high/low ATR. The front of the
// output repeats the first computed value so the length matches the input.
func ATRFromCloses(values []float64, period int) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	tr := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d < 0 {
			d = -d
		}
		tr[i] = d
	}

	if len(tr) < period {
		var sum float64
		for _, v := range tr {
			sum += v
		}
		avg := sum / float64(len(tr))
		out := make([]float64, len(values))
		for i := range out {
			out[i] = avg
		}
		return out
	}

	hi := period
	if hi >= len(tr) {
		hi = len(tr) - 1
	}
	var first float64
	for i := 1; i <= hi; i++ {
		first += tr[i]
	}
	first /= float64(period)

	atr := make([]float64, 0, len(values))
	atr = append(atr, first)
	for i := period + 1; i < len(tr); i++ {
		prev := atr[len(atr)-1]
		atr = append(atr, (prev*float64(period-1)+tr[i])/float64(period))
	}

	// Pad the front with the first smoothed value.
	out := make([]float64, len(values))
	pad := len(values) - len(atr)
	for i := 0; i < pad; i++ {
		out[i] = atr[0]
	}
	copy(out[pad:], atr)
	return out
}

// LastClose returns the final value of a series, or 0 for an empty one.
func LastClose(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return values[len(values)-1]
}
