package processor

import (
	"PassengerPrep/src/utils"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 票价四分位箱，按从低到高排列
var FareBinLabels = []string{"very_low", "low", "high", "very_high"}

const (
	AgeAdult      = "Adult"
	AgeChild      = "Child"
	AdultAge      = 18.0
	UnknownDeck   = "Z"
	suppressedCab = "T" // 只出现一次的 T 舱位按缺失处理
)

type derivation func(df dataframe.DataFrame) (series.Series, error)

// derivations 结果按此顺序挂到表上
var derivations = []derivation{
	deriveFareBin,
	deriveAgeState,
	deriveFamilySize,
	deriveIsMother,
	deriveCabin,
	deriveDeck,
	deriveIsMale,
}

// AddDerived 计算派生列；各派生列之间互不依赖，并发计算后按固定顺序写回
func AddDerived(sc *StageContext, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns("derive", df, ColFare, ColAge, ColParch, ColSibSp, ColSex, ColTitle, ColCabin); err != nil {
		return dataframe.DataFrame{}, err
	}
	results := make([]series.Series, len(derivations))
	var g errgroup.Group
	for i, derive := range derivations {
		i, derive := i, derive
		g.Go(func() error {
			s, err := derive(df)
			if err != nil {
				return err
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dataframe.DataFrame{}, err
	}

	for _, s := range results {
		df = df.Mutate(s)
	}
	sc.Log.Debug("derived features added", zap.Int("cols", df.Ncol()))
	return df, nil
}

// FareEdges 线性插值得到的四分位边界 q0..q4，边界重复时返回 BinningError
func FareEdges(fares []float64) ([]float64, error) {
	sorted := append([]float64(nil), fares...)
	sort.Float64s(sorted)
	edges := make([]float64, len(FareBinLabels)+1)
	for i := range edges {
		edges[i] = utils.Quantile(sorted, float64(i)/float64(len(FareBinLabels)))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, &BinningError{Column: ColFare, Edges: edges}
		}
	}
	return edges, nil
}

// FareBin 第一个箱为闭区间 [q0,q1]，其余为 (qi,qi+1]
func FareBin(fare float64, edges []float64) string {
	for i := 1; i < len(edges)-1; i++ {
		if fare <= edges[i] {
			return FareBinLabels[i-1]
		}
	}
	return FareBinLabels[len(FareBinLabels)-1]
}

func deriveFareBin(df dataframe.DataFrame) (series.Series, error) {
	fares := df.Col(ColFare).Float()
	edges, err := FareEdges(fares)
	if err != nil {
		return series.Series{}, err
	}
	bins := make([]string, len(fares))
	for i, f := range fares {
		bins[i] = FareBin(f, edges)
	}
	return series.New(bins, series.String, ColFareBin), nil
}

func AgeState(age float64) string {
	if age >= AdultAge {
		return AgeAdult
	}
	return AgeChild
}

func deriveAgeState(df dataframe.DataFrame) (series.Series, error) {
	ages := df.Col(ColAge).Float()
	states := make([]string, len(ages))
	for i, a := range ages {
		states[i] = AgeState(a)
	}
	return series.New(states, series.String, ColAgeState), nil
}

func FamilySize(parch, sibsp int) int {
	return parch + sibsp + 1
}

func deriveFamilySize(df dataframe.DataFrame) (series.Series, error) {
	parch, err := df.Col(ColParch).Int()
	if err != nil {
		return series.Series{}, err
	}
	sibsp, err := df.Col(ColSibSp).Int()
	if err != nil {
		return series.Series{}, err
	}
	sizes := make([]int, len(parch))
	for i := range parch {
		sizes[i] = FamilySize(parch[i], sibsp[i])
	}
	return series.New(sizes, series.Int, ColFamilySize), nil
}

// IsMother 女性、带子女、年龄大于 18（严格大于，与 AgeState 的 >= 不同）且不是 Miss
func IsMother(sex string, parch int, age float64, title string) int {
	if sex == "female" && parch > 0 && age > AdultAge && title != "Miss" {
		return 1
	}
	return 0
}

func deriveIsMother(df dataframe.DataFrame) (series.Series, error) {
	sex := df.Col(ColSex).Records()
	parch, err := df.Col(ColParch).Int()
	if err != nil {
		return series.Series{}, err
	}
	ages := df.Col(ColAge).Float()
	titles := df.Col(ColTitle).Records()
	flags := make([]int, len(sex))
	for i := range sex {
		flags[i] = IsMother(sex[i], parch[i], ages[i], titles[i])
	}
	return series.New(flags, series.Int, ColIsMother), nil
}

// Deck 舱位首字母大写，缺失或 T 舱位为 Z
func Deck(cabin string, present bool) string {
	if !present || cabin == suppressedCab || cabin == "" {
		return UnknownDeck
	}
	return strings.ToUpper(cabin[:1])
}

// deriveCabin 把 T 舱位置为缺失
func deriveCabin(df dataframe.DataFrame) (series.Series, error) {
	cabin := df.Col(ColCabin)
	vals := cabin.Records()
	for i, na := range cabin.IsNaN() {
		if na || vals[i] == suppressedCab {
			vals[i] = "NaN"
		}
	}
	return series.New(vals, series.String, ColCabin), nil
}

func deriveDeck(df dataframe.DataFrame) (series.Series, error) {
	cabin := df.Col(ColCabin)
	vals := cabin.Records()
	decks := make([]string, len(vals))
	for i, present := range utils.NotNA(cabin) {
		decks[i] = Deck(vals[i], present)
	}
	return series.New(decks, series.String, ColDeck), nil
}

func IsMale(sex string) int {
	if sex == "male" {
		return 1
	}
	return 0
}

func deriveIsMale(df dataframe.DataFrame) (series.Series, error) {
	sex := df.Col(ColSex).Records()
	flags := make([]int, len(sex))
	for i, s := range sex {
		flags[i] = IsMale(s)
	}
	return series.New(flags, series.Int, ColIsMale), nil
}
