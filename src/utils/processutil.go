package utils

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// MissingColumns 返回 df 中缺少的列
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, n := range names {
		if !HasColumn(df, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// NotNA 每个元素是否有值
func NotNA(s series.Series) []bool {
	nas := s.IsNaN()
	out := make([]bool, len(nas))
	for i, na := range nas {
		out[i] = !na
	}
	return out
}

// Median 忽略 NaN 的中位数，没有有效值时返回 NaN
func Median(values []float64) float64 {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// Quantile 对已排序的 sorted 按线性插值取 p 分位数（位置 p*(n-1)）
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
