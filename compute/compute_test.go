package compute

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTolerance = 1e-9

func TestCompute_ValidateRate(t *testing.T) {
	t.Parallel()

	t.Run("valid rates", func(t *testing.T) {
		t.Parallel()

		values := []float64{
			1e-12, // just above zero is valid
			0.5,
			1,
			17.12,
			1e18,
		}

		for _, value := range values {
			rate, err := ValidateRate("rate", value)

			require.NoError(t, err)
			assert.InDelta(t, value, float64(rate), 0)
		}
	})

	t.Run("invalid rates", func(t *testing.T) {
		t.Parallel()

		values := []float64{
			0,
			-0.0001,
			-17.12,
			math.NaN(),
			math.Inf(1),
			math.Inf(-1),
		}

		for _, value := range values {
			_, err := ValidateRate("fx_bid", value)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRate)

			var rateErr *InvalidRateError

			require.ErrorAs(t, err, &rateErr)
			assert.Equal(t, "fx_bid", rateErr.Name)
			assert.Contains(t, err.Error(), "fx_bid")
		}
	})
}

func TestCompute_Premium(t *testing.T) {
	t.Parallel()

	t.Run("reference values", func(t *testing.T) {
		t.Parallel()

		premium, err := Premium(18.95, 17.12)

		require.NoError(t, err)
		assert.InDelta(t, 10.69364161849711, premium, floatTolerance)

		premium, err = Premium(18.70, 17.12)

		require.NoError(t, err)
		assert.InDelta(t, 9.243697478991614, premium, floatTolerance)
	})

	t.Run("observed below reference is negative", func(t *testing.T) {
		t.Parallel()

		premium, err := Premium(16.00, 17.12)

		require.NoError(t, err)
		assert.Negative(t, premium)
	})

	t.Run("equal rates yield zero", func(t *testing.T) {
		t.Parallel()

		premium, err := Premium(17.12, 17.12)

		require.NoError(t, err)
		assert.Zero(t, premium)
	})

	t.Run("invalid observed rate", func(t *testing.T) {
		t.Parallel()

		_, err := Premium(-18.95, 17.12)

		var rateErr *InvalidRateError

		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "observed_rate", rateErr.Name)
	})

	t.Run("invalid reference rate", func(t *testing.T) {
		t.Parallel()

		_, err := Premium(18.95, 0)

		var rateErr *InvalidRateError

		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "reference_rate", rateErr.Name)
	})
}

func TestCompute_Spread(t *testing.T) {
	t.Parallel()

	t.Run("reference value", func(t *testing.T) {
		t.Parallel()

		spread, err := Spread(18.70, 18.95)

		require.NoError(t, err)
		assert.InDelta(t, -1.3184584178498851, spread, floatTolerance)
	})

	t.Run("sell above buy is negative, not an error", func(t *testing.T) {
		t.Parallel()

		spread, err := Spread(10, 20)

		require.NoError(t, err)
		assert.InDelta(t, -50, spread, floatTolerance)
	})

	t.Run("invalid buy rate", func(t *testing.T) {
		t.Parallel()

		_, err := Spread(-18.70, 18.95)

		var rateErr *InvalidRateError

		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "buy_rate", rateErr.Name)
	})

	t.Run("invalid sell rate", func(t *testing.T) {
		t.Parallel()

		_, err := Spread(18.70, 0)

		var rateErr *InvalidRateError

		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "sell_rate", rateErr.Name)
	})
}

func TestCompute_ComputePremiums(t *testing.T) {
	t.Parallel()

	validInput := Input{
		SellRate: 18.95,
		BuyRate:  18.70,
		FXBid:    17.12,
		FXAsk:    17.12,
	}

	t.Run("matches individual formulas, unrounded", func(t *testing.T) {
		t.Parallel()

		result, err := ComputePremiums(validInput)
		require.NoError(t, err)

		assert.InDelta(t, 10.69364161849711, result.SellPremium, floatTolerance)
		assert.InDelta(t, 9.243697478991614, result.BuyPremium, floatTolerance)
		assert.InDelta(t, -1.3184584178498851, result.BuySellSpread, floatTolerance)
	})

	t.Run("rounding is applied terminally", func(t *testing.T) {
		t.Parallel()

		var (
			decimals = 2
			in       = validInput
		)

		in.Decimals = &decimals

		result, err := ComputePremiums(in)
		require.NoError(t, err)

		assert.InDelta(t, 10.69, result.SellPremium, 0)
		assert.InDelta(t, 9.24, result.BuyPremium, 0)
		assert.InDelta(t, -1.32, result.BuySellSpread, 0)

		// Rounding must not flip the sign of any field
		unrounded, err := ComputePremiums(validInput)
		require.NoError(t, err)

		assert.Equal(t, math.Signbit(unrounded.SellPremium), math.Signbit(result.SellPremium))
		assert.Equal(t, math.Signbit(unrounded.BuyPremium), math.Signbit(result.BuyPremium))
		assert.Equal(t, math.Signbit(unrounded.BuySellSpread), math.Signbit(result.BuySellSpread))
	})

	t.Run("rounding to zero decimals", func(t *testing.T) {
		t.Parallel()

		var (
			decimals = 0
			in       = validInput
		)

		in.Decimals = &decimals

		result, err := ComputePremiums(in)
		require.NoError(t, err)

		assert.InDelta(t, 11, result.SellPremium, 0)
		assert.InDelta(t, 9, result.BuyPremium, 0)
		assert.InDelta(t, -1, result.BuySellSpread, 0)
	})

	t.Run("identical inputs yield identical results", func(t *testing.T) {
		t.Parallel()

		first, err := ComputePremiums(validInput)
		require.NoError(t, err)

		second, err := ComputePremiums(validInput)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("error names the failing input", func(t *testing.T) {
		t.Parallel()

		testTable := []struct {
			name   string
			mutate func(in *Input)
		}{
			{
				"sell_rate",
				func(in *Input) { in.SellRate = 0 },
			},
			{
				"buy_rate",
				func(in *Input) { in.BuyRate = -1 },
			},
			{
				"fx_bid",
				func(in *Input) { in.FXBid = math.NaN() },
			},
			{
				"fx_ask",
				func(in *Input) { in.FXAsk = math.Inf(1) },
			},
		}

		for _, testCase := range testTable {
			t.Run(testCase.name, func(t *testing.T) {
				t.Parallel()

				in := validInput
				testCase.mutate(&in)

				result, err := ComputePremiums(in)
				assert.Nil(t, result)

				var rateErr *InvalidRateError

				require.ErrorAs(t, err, &rateErr)
				assert.Equal(t, testCase.name, rateErr.Name)
			})
		}
	})

	t.Run("boundary rates just above zero", func(t *testing.T) {
		t.Parallel()

		result, err := ComputePremiums(Input{
			SellRate: 1e-12,
			BuyRate:  1e-12,
			FXBid:    1e-12,
			FXAsk:    1e-12,
		})

		require.NoError(t, err)
		assert.Zero(t, result.SellPremium)
		assert.Zero(t, result.BuyPremium)
		assert.Zero(t, result.BuySellSpread)
	})
}
