package processor

import (
	"PassengerPrep/src/utils"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

// DefaultEmbarked 缺失登船港口的固定填充值
const DefaultEmbarked = "C"

// FillMissing 依次填充 Embarked、Fare、Age，中位数都在整张合并表上计算一次
// Age 按 Title 分组取中位数，必须在 AddTitle 之后执行
func FillMissing(sc *StageContext, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns("impute", df, ColEmbarked, ColFare, ColPclass, ColAge, ColTitle); err != nil {
		return dataframe.DataFrame{}, err
	}

	// embarked
	embarked := df.Col(ColEmbarked).Records()
	filledEmbarked := 0
	for i, e := range df.Col(ColEmbarked).IsNaN() {
		if e {
			embarked[i] = DefaultEmbarked
			filledEmbarked++
		}
	}
	df = df.Mutate(series.New(embarked, series.String, ColEmbarked))

	// fare: 三等舱且从 S 登船的票价中位数
	fares := df.Col(ColFare).Float()
	pclass, err := df.Col(ColPclass).Int()
	if err != nil {
		return dataframe.DataFrame{}, NewSchemaError("combined", ColPclass, err.Error())
	}
	var subset []float64
	for i, f := range fares {
		if pclass[i] == 3 && embarked[i] == "S" {
			subset = append(subset, f)
		}
	}
	medianFare := utils.Median(subset)
	if math.IsNaN(medianFare) {
		medianFare = utils.Median(fares)
		if math.IsNaN(medianFare) {
			return dataframe.DataFrame{}, NewSchemaError("combined", ColFare, "no known fare to impute from")
		}
		sc.Log.Warn("no known fare for Pclass=3 and Embarked=S, using overall median", zap.Float64("median", medianFare))
	}
	filledFare := fillNaN(fares, func(int) float64 { return medianFare })
	df = df.Mutate(series.New(fares, series.Float, ColFare))

	// age: 同 Title 分组的中位数
	ages := df.Col(ColAge).Float()
	titles := df.Col(ColTitle).Records()
	groups := make(map[string][]float64)
	for i, a := range ages {
		groups[titles[i]] = append(groups[titles[i]], a)
	}
	overall := utils.Median(ages)
	if math.IsNaN(overall) {
		return dataframe.DataFrame{}, NewSchemaError("combined", ColAge, "no known age to impute from")
	}
	medians := make(map[string]float64, len(groups))
	for title, vals := range groups {
		m := utils.Median(vals)
		if math.IsNaN(m) {
			sc.Log.Warn("no known age for title, using overall median", zap.String("title", title), zap.Float64("median", overall))
			m = overall
		}
		medians[title] = m
	}
	filledAge := fillNaN(ages, func(i int) float64 { return medians[titles[i]] })
	df = df.Mutate(series.New(ages, series.Float, ColAge))

	sc.Log.Info("missing values filled",
		zap.Int("embarked", filledEmbarked),
		zap.Int("fare", filledFare),
		zap.Float64("fare_median", medianFare),
		zap.Int("age", filledAge))
	return df, nil
}

// fillNaN 原地替换 NaN，返回替换个数
func fillNaN(vals []float64, fill func(i int) float64) int {
	n := 0
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = fill(i)
			n++
		}
	}
	return n
}
