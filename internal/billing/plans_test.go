package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlans(t *testing.T) {
	catalog := Plans()
	require.Len(t, catalog, 3)

	t.Run("starter and professional are self serve", func(t *testing.T) {
		starter, ok := PlanByName("Starter")
		require.True(t, ok)
		assert.True(t, starter.SelfServe())
		assert.Equal(t, 19, *starter.Price)

		pro, ok := PlanByName("Professional")
		require.True(t, ok)
		assert.True(t, pro.SelfServe())
		assert.Equal(t, 35, *pro.Price)
		assert.True(t, pro.Popular)
	})

	t.Run("enterprise has no price and no checkout", func(t *testing.T) {
		enterprise, ok := PlanByName("Enterprise")
		require.True(t, ok)
		assert.False(t, enterprise.SelfServe())
		assert.Empty(t, enterprise.PriceFor(IntervalMonthly))
		assert.Empty(t, enterprise.PriceFor(IntervalAnnual))
	})

	t.Run("interval selects the matching price id", func(t *testing.T) {
		pro, _ := PlanByName("Professional")
		assert.Equal(t, "price_1T4QFN0gB9FXYr87EWm1IP4e", pro.PriceFor(IntervalMonthly))
		assert.Equal(t, "price_1T4QFP0gB9FXYr87xoe5Q76D", pro.PriceFor(IntervalAnnual))
	})

	t.Run("unknown plan lookup misses", func(t *testing.T) {
		_, ok := PlanByName("Ultimate")
		assert.False(t, ok)
	})
}
