package numeric

import "math"

// runningStat is a Welford accumulator (Knuth TAOCP vol 2, 3rd ed., p. 232).
// Identical samples leave the mean exactly at the sample value and the
// squared-deviation sum exactly at zero.
type runningStat struct {
	n    int
	mean float64
	s    float64
}

func (r *runningStat) push(x float64) {
	r.n++
	if r.n == 1 {
		r.mean = x
		r.s = 0
		return
	}
	prev := r.mean
	r.mean = prev + (x-prev)/float64(r.n)
	r.s += (x - prev) * (x - r.mean)
}

// variance is the unbiased sample variance, zero below two samples.
func (r *runningStat) variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.s / float64(r.n-1)
}

// Summary is the mean of a sample and the standard error of that mean.
type Summary struct {
	N           int
	Mean        float64
	StdDev      float64
	Uncertainty float64
}

// Summarize computes the arithmetic mean, the sample standard deviation and
// the standard deviation of the mean (StdDev/sqrt(N)). An empty sample has a
// NaN mean.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{Mean: math.NaN()}
	}
	var rs runningStat
	for _, v := range values {
		rs.push(v)
	}
	sd := math.Sqrt(rs.variance())
	return Summary{
		N:           rs.n,
		Mean:        rs.mean,
		StdDev:      sd,
		Uncertainty: sd / math.Sqrt(float64(rs.n)),
	}
}

// ValueUncertainty returns the mean paired with its uncertainty.
func (s Summary) ValueUncertainty() ValueUncertainty {
	return ValueWithUncertainty(s.Mean, s.Uncertainty)
}

// Label is the "mean ± uncertainty" token used in log output.
func (s Summary) Label() string {
	if s.N == 0 {
		return "n/a"
	}
	return s.ValueUncertainty().Label()
}

// Bin is one histogram bucket over [Min, Max).
type Bin struct {
	Min, Max float64
	Count    int
}

// Histogram sorts values into n equal bins spanning [lo, hi]. Values outside
// the domain or NaN are dropped; hi itself falls into the last bin.
func Histogram(values []float64, n int, lo, hi float64) []Bin {
	if n <= 0 || !(hi > lo) {
		return nil
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Min = lo + float64(i)*width
		bins[i].Max = lo + float64(i+1)*width
	}
	bins[n-1].Max = hi

	for _, v := range values {
		if math.IsNaN(v) || v < lo || v > hi {
			continue
		}
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}
