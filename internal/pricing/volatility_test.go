package pricing

import "testing"

func TestVolatilityEstimatorAbsentBelowTwoSamples(t *testing.T) {
	t.Parallel()

	v := NewVolatilityEstimator(60)
	if _, ok := v.Sigma(); ok {
		t.Fatal("Sigma() with zero samples should be absent")
	}

	v.Add(100)
	if _, ok := v.Sigma(); ok {
		t.Fatal("Sigma() with one sample should be absent")
	}
}

func TestVolatilityEstimatorComputesPositiveSigma(t *testing.T) {
	t.Parallel()

	v := NewVolatilityEstimator(10)
	for _, p := range []float64{100, 101, 100, 101, 100} {
		v.Add(p)
	}

	sigma, ok := v.Sigma()
	if !ok {
		t.Fatal("Sigma() should be present with 5 samples")
	}
	if sigma <= 0 {
		t.Errorf("Sigma() = %v, want > 0 for oscillating prices", sigma)
	}
}

func TestVolatilityEstimatorEvictsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	v := NewVolatilityEstimator(3)
	v.Add(100)
	v.Add(100)
	v.Add(100)
	v.Add(1000) // evicts the first 100; window is now [100, 100, 1000]

	sigma, ok := v.Sigma()
	if !ok {
		t.Fatal("Sigma() should be present")
	}
	if sigma <= 0 {
		t.Errorf("Sigma() = %v, want > 0 once the jump enters the window", sigma)
	}
}

func TestVolatilityEstimatorConstantPricesGiveZeroSigma(t *testing.T) {
	t.Parallel()

	v := NewVolatilityEstimator(5)
	for i := 0; i < 5; i++ {
		v.Add(100)
	}

	sigma, ok := v.Sigma()
	if !ok {
		t.Fatal("Sigma() should be present")
	}
	if sigma != 0 {
		t.Errorf("Sigma() = %v, want 0 for constant prices", sigma)
	}
}
