package lib

// AverageInt64 running minimum, maximum and mean of samples, like
// per operation latency.
type AverageInt64 struct {
	n      int64
	minval int64
	maxval int64
	sum    int64
}

// Add a sample.
func (av *AverageInt64) Add(sample int64) {
	if av.n == 0 || sample < av.minval {
		av.minval = sample
	}
	if av.n == 0 || sample > av.maxval {
		av.maxval = sample
	}
	av.n++
	av.sum += sample
}

// Min sample seen so far.
func (av *AverageInt64) Min() int64 {
	return av.minval
}

// Max sample seen so far.
func (av *AverageInt64) Max() int64 {
	return av.maxval
}

// Samples count.
func (av *AverageInt64) Samples() int64 {
	return av.n
}

// Mean of samples, rounded towards zero.
func (av *AverageInt64) Mean() int64 {
	if av.n == 0 {
		return 0
	}
	return av.sum / av.n
}
