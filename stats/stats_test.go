package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomWalk(rng *rand.Rand, n int, start float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		v += rng.NormFloat64()
		out[i] = v
	}
	return out
}

func TestOLSRecoversCoefficients(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	x := make([]float64, 200)
	y := make([]float64, 200)
	for i := range x {
		x[i] = float64(i) / 10
		y[i] = 3 + 2*x[i] + 0.01*rng.NormFloat64()
	}

	res, err := OLS(y, x, ones(len(x)))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Params[0], 1e-3)
	assert.InDelta(t, 3.0, res.Params[1], 1e-2)
	assert.Greater(t, res.RSquared, 0.999)
	assert.Len(t, res.Residuals, len(y))
	assert.Greater(t, math.Abs(res.TValues[0]), 100.0)
}

func TestOLSErrors(t *testing.T) {
	t.Parallel()

	t.Run("singular design", func(t *testing.T) {
		c := []float64{1, 1, 1, 1}
		_, err := OLS([]float64{1, 2, 3, 4}, c, c)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDegenerate)
	})

	t.Run("too few rows", func(t *testing.T) {
		_, err := OLS([]float64{1, 2}, []float64{1, 2}, []float64{1, 1})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("nan response", func(t *testing.T) {
		_, err := OLS([]float64{1, math.NaN(), 3}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrDegenerate)
	})

	t.Run("no regressors", func(t *testing.T) {
		_, err := OLS([]float64{1, 2, 3})
		assert.Error(t, err)
	})
}

func TestOLSHighLevelFlatRegressor(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(19))
	const n = 500
	x := make([]float64, n)
	y := make([]float64, n)
	v := 6e4
	for i := range x {
		v += 0.01 * rng.NormFloat64()
		x[i] = v
		y[i] = 0.5*v + 0.001*rng.NormFloat64()
	}

	res, err := OLS(y, x, ones(n))
	require.NoError(t, err)

	alpha, beta, err := LinearRegression(x, y)
	require.NoError(t, err)
	assert.InDelta(t, beta, res.Params[0], 1e-6)
	assert.InDelta(t, alpha, res.Params[1], 1e-1)
	assert.Greater(t, res.StdErr[0], 0.0)
	assert.False(t, math.IsNaN(res.StdErr[1]))
}

func TestLinearRegression(t *testing.T) {
	t.Parallel()

	a, b, err := LinearRegression([]float64{1, 2, 3, 4}, []float64{3, 5, 7, 9})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a, 1e-12)
	assert.InDelta(t, 2.0, b, 1e-12)

	_, _, err = LinearRegression([]float64{5, 5, 5}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDegenerate)

	_, _, err = LinearRegression([]float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestZScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, ZScore(5, 1, 2))
	assert.Equal(t, 0.0, ZScore(5, 1, 0))
	assert.Equal(t, 0.0, ZScore(5, 1, 1e-12))
	assert.Equal(t, 0.0, ZScore(5, 1, math.NaN()))
}

func TestRollingMean(t *testing.T) {
	t.Parallel()

	got := RollingMean([]float64{1, 2, 3, 4}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, got[1:])

	got = RollingMean([]float64{1, 2, 3}, 1)
	assert.Equal(t, []float64{1, 2, 3}, got)

	got = RollingMean([]float64{1, math.NaN(), 3, 4}, 2)
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 3.5, got[3])
}

func TestRollingStdDev(t *testing.T) {
	t.Parallel()

	got := RollingStdDev([]float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 1.0, got[2], 1e-12)
	assert.InDelta(t, 1.0, got[3], 1e-12)

	for _, v := range RollingStdDev([]float64{1, 2, 3}, 1) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRollingRegression(t *testing.T) {
	t.Parallel()

	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{3, 5, 7, 9, 11, 13}
	alpha, beta := RollingRegression(x, y, 3)
	require.Len(t, beta, len(x))

	for k := 0; k < 2; k++ {
		assert.True(t, math.IsNaN(beta[k]))
		assert.True(t, math.IsNaN(alpha[k]))
	}
	for k := 2; k < len(x); k++ {
		assert.InDelta(t, 2.0, beta[k], 1e-9)
		assert.InDelta(t, 1.0, alpha[k], 1e-9)
	}

	// constant regressor windows have no slope
	_, beta = RollingRegression([]float64{1, 1, 1, 2}, []float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(beta[2]))
	assert.False(t, math.IsNaN(beta[3]))
}

func TestMacKinnonP(t *testing.T) {
	t.Parallel()

	p, err := MacKinnonP(-2.86154, TrendConstant, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, p, 0.002)

	p, err = MacKinnonP(-3.33613, TrendConstant, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, p, 0.002)

	p, err = MacKinnonP(5, TrendConstant, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	p, err = MacKinnonP(-30, TrendConstant, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	// monotone in the statistic
	lo, _ := MacKinnonP(-4, TrendConstant, 2)
	hi, _ := MacKinnonP(-2, TrendConstant, 2)
	assert.Less(t, lo, hi)

	_, err = MacKinnonP(-2, TrendConstant, 9)
	assert.Error(t, err)
	_, err = MacKinnonP(-2, Trend("ct"), 1)
	assert.Error(t, err)
}

func TestCriticalValues(t *testing.T) {
	t.Parallel()

	cv, err := CriticalValues(TrendConstant, 2, 1000)
	require.NoError(t, err)
	assert.InDelta(t, -3.34, cv["5%"], 0.01)
	assert.Less(t, cv["1%"], cv["5%"])
	assert.Less(t, cv["5%"], cv["10%"])

	_, err = CriticalValues(TrendNone, 2, 100)
	assert.Error(t, err)
}

func TestADFStationarySeries(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	x := make([]float64, 500)
	for i := 1; i < len(x); i++ {
		x[i] = 0.5*x[i-1] + rng.NormFloat64()
	}

	res, err := ADF(x, AutoLag, TrendConstant)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.01)
	assert.Less(t, res.Statistic, res.Critical["1%"])
	assert.GreaterOrEqual(t, res.UsedLag, 0)
}

func TestADFFixedLag(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(4))
	x := randomWalk(rng, 300, 0)
	res, err := ADF(x, 2, TrendNone)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UsedLag)
	assert.Equal(t, 300-1-2, res.NObs)
}

func TestADFTooShort(t *testing.T) {
	t.Parallel()

	_, err := ADF([]float64{1, 2}, AutoLag, TrendNone)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCointDetectsRelationship(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))
	s1 := randomWalk(rng, 500, 100)
	s2 := make([]float64, len(s1))
	for i := range s1 {
		s2[i] = 2*s1[i] + rng.NormFloat64()
	}

	res, err := Coint(s2, s1)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)
	assert.InDelta(t, 2.0, res.HedgeRatio, 0.05)
	assert.False(t, res.Collinear)

	res, err = Coint(s1, s2)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)
}

func TestCointIndependentWalksRejected(t *testing.T) {
	t.Parallel()

	accepted := 0
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s1 := randomWalk(rng, 400, 100)
		s2 := randomWalk(rng, 400, 50)
		res, err := Coint(s1, s2)
		require.NoError(t, err)
		if res.PValue < 0.05 {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 5)
}

func TestCointDegenerate(t *testing.T) {
	t.Parallel()

	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 42
	}
	walk := randomWalk(rand.New(rand.NewSource(5)), 100, 10)

	_, err := Coint(flat, walk)
	assert.ErrorIs(t, err, ErrDegenerate)
	_, err = Coint(walk, flat)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Coint(walk, walk[:50])
	assert.Error(t, err)
}

func TestCointCollinear(t *testing.T) {
	t.Parallel()

	s1 := randomWalk(rand.New(rand.NewSource(6)), 200, 100)
	s2 := make([]float64, len(s1))
	for i, v := range s1 {
		s2[i] = 2*v + 1
	}

	res, err := Coint(s2, s1)
	require.NoError(t, err)
	assert.True(t, res.Collinear)
	assert.True(t, math.IsInf(res.Statistic, -1))
	assert.Equal(t, 0.0, res.PValue)
}
