package lib

import "fmt"
import "strings"
import "strconv"

// HistogramInt64 counts samples into fixed width bins between `from`
// and `till`. Samples below `from` and at or above `till` are counted
// in two open ended bins.
type HistogramInt64 struct {
	n      int64
	minval int64
	maxval int64
	sum    int64
	below  int64
	above  int64
	bins   []int64

	from  int64
	till  int64
	width int64
}

// NewhistorgramInt64 return an empty histogram, from and till are
// rounded down to a multiple of width.
func NewhistorgramInt64(from, till, width int64) *HistogramInt64 {
	if width <= 0 || till <= from {
		panic(fmt.Errorf("invalid histogram [%v, %v) width %v", from, till, width))
	}
	from, till = (from/width)*width, (till/width)*width
	return &HistogramInt64{
		from: from, till: till, width: width,
		bins: make([]int64, (till-from)/width),
	}
}

// Add a sample.
func (h *HistogramInt64) Add(sample int64) {
	if h.n == 0 || sample < h.minval {
		h.minval = sample
	}
	if h.n == 0 || sample > h.maxval {
		h.maxval = sample
	}
	h.n++
	h.sum += sample

	switch {
	case sample < h.from:
		h.below++
	case sample >= h.till:
		h.above++
	default:
		h.bins[(sample-h.from)/h.width]++
	}
}

// Min sample seen so far.
func (h *HistogramInt64) Min() int64 {
	return h.minval
}

// Max sample seen so far.
func (h *HistogramInt64) Max() int64 {
	return h.maxval
}

// Samples count.
func (h *HistogramInt64) Samples() int64 {
	return h.n
}

// Mean of samples.
func (h *HistogramInt64) Mean() float64 {
	if h.n == 0 {
		return 0
	}
	return float64(h.sum) / float64(h.n)
}

// Bins return non-empty bins keyed by their lower bound, "-" for
// samples below range and "+" for samples above it.
func (h *HistogramInt64) Bins() map[string]int64 {
	bins := map[string]int64{}
	if h.below > 0 {
		bins["-"] = h.below
	}
	for i, count := range h.bins {
		if count > 0 {
			bins[strconv.Itoa(int(h.from+int64(i)*h.width))] = count
		}
	}
	if h.above > 0 {
		bins["+"] = h.above
	}
	return bins
}

// Fullstats return summary along with the bins, suitable for json.
func (h *HistogramInt64) Fullstats() map[string]interface{} {
	return map[string]interface{}{
		"samples":   h.n,
		"min":       h.minval,
		"max":       h.maxval,
		"mean":      h.Mean(),
		"histogram": h.Bins(),
	}
}

// Logstring return a single line summary, bins in ascending order.
func (h *HistogramInt64) Logstring() string {
	ss := []string{}
	if h.below > 0 {
		ss = append(ss, fmt.Sprintf("-:%v", h.below))
	}
	for i, count := range h.bins {
		if count > 0 {
			ss = append(ss, fmt.Sprintf("%v:%v", h.from+int64(i)*h.width, count))
		}
	}
	if h.above > 0 {
		ss = append(ss, fmt.Sprintf("+:%v", h.above))
	}
	fmsg := "samples:%v min:%v max:%v mean:%.2f {%v}"
	return fmt.Sprintf(fmsg, h.n, h.minval, h.maxval, h.Mean(), strings.Join(ss, " "))
}
