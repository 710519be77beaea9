package processor

import (
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

// EncodedColumns 需要展开为指示列的分类列，按此顺序追加
var EncodedColumns = []string{ColDeck, ColPclass, ColTitle, ColFareBin, ColEmbarked, ColAgeState}

// 展开后不再需要的列
var droppedColumns = []string{ColCabin, ColName, ColTicket, ColParch, ColSibSp, ColSex}

// Categories 列中出现过的类别；Fare_Bin 按箱的顺序，其余按字典序
func Categories(column string, values []string) []string {
	seen := make(map[string]bool)
	for _, v := range values {
		seen[v] = true
	}

	var cats []string
	if column == ColFareBin {
		for _, label := range FareBinLabels {
			if seen[label] {
				cats = append(cats, label)
			}
		}
		return cats
	}
	for v := range seen {
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return cats
}

// Encode 每个出现过的类别生成一列 <列名>_<类别>，再删除源列和冗余列
func Encode(sc *StageContext, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns("encode", df, append(append([]string(nil), EncodedColumns...), droppedColumns...)...); err != nil {
		return dataframe.DataFrame{}, err
	}
	var indicators []series.Series
	for _, col := range EncodedColumns {
		values := df.Col(col).Records()
		cats := Categories(col, values)
		for _, cat := range cats {
			flags := make([]int, len(values))
			for i, v := range values {
				if v == cat {
					flags[i] = 1
				}
			}
			indicators = append(indicators, series.New(flags, series.Int, col+"_"+cat))
		}
		sc.Log.Debug("column encoded", zap.String("column", col), zap.Strings("categories", cats))
	}

	for _, s := range indicators {
		df = df.Mutate(s)
	}
	drop := append(append([]string(nil), EncodedColumns...), droppedColumns...)
	df = df.Drop(drop)
	return df, df.Error()
}

// ReorderColumns 标签列移到主键之后的第一位，其余列相对顺序不变
func ReorderColumns(sc *StageContext, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns("reorder", df, ColPassengerID, ColSurvived); err != nil {
		return dataframe.DataFrame{}, err
	}
	columns := []string{ColPassengerID, ColSurvived}
	for _, name := range df.Names() {
		if name != ColPassengerID && name != ColSurvived {
			columns = append(columns, name)
		}
	}
	df = df.Select(columns)
	return df, df.Error()
}
