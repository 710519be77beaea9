package utils

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, math.NaN(), 2, 3}))
	assert.True(t, math.IsNaN(Median([]float64{math.NaN()})))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Quantile(sorted, 0))
	assert.Equal(t, 2.0, Quantile(sorted, 0.25))
	assert.Equal(t, 3.0, Quantile(sorted, 0.5))
	assert.Equal(t, 5.0, Quantile(sorted, 1))

	// 位置 0.75*(4-1)=2.25 落在 30 和 40 之间
	assert.InDelta(t, 32.5, Quantile([]float64{10, 20, 30, 40}, 0.75), 1e-9)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestColumns(t *testing.T) {
	df := dataframe.New(
		series.New([]int{1, 2}, series.Int, "PassengerId"),
		series.New([]string{"a", "NaN"}, series.String, "Cabin"),
	)
	assert.True(t, HasColumn(df, "Cabin"))
	assert.False(t, HasColumn(df, "Fare"))
	assert.Equal(t, []string{"Fare"}, MissingColumns(df, "PassengerId", "Fare"))
	assert.Equal(t, []bool{true, false}, NotNA(df.Col("Cabin")))
	assert.True(t, Contains([]int{1, 2, 3}, 2))
}
