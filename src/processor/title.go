package processor

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

// titleGroups 小写称谓到规范称谓的映射
var titleGroups = map[string]string{
	"mr":           "Mr",
	"mrs":          "Mrs",
	"miss":         "Miss",
	"master":       "Master",
	"don":          "Sir",
	"rev":          "Sir",
	"mlle":         "Miss",
	"mme":          "Mrs",
	"major":        "Officer",
	"lady":         "Lady",
	"capt":         "Officer",
	"col":          "Officer",
	"dona":         "Lady",
	"dr":           "Officer",
	"jonkheer":     "Sir",
	"ms":           "Ms",
	"sir":          "Sir",
	"the countess": "Lady",
}

// ExtractTitle 取第一个逗号与其后第一个句点之间的称谓并规范化
// 例如 "Braund, Mr. Owen Harris" -> "Mr"
func ExtractTitle(name string) (string, error) {
	comma := strings.Index(name, ",")
	if comma < 0 {
		return "", &UnknownTitleError{Name: name, Malformed: true}
	}
	rest := name[comma+1:]
	// 名字里可能还有逗号，只看第一个逗号后的那一段
	if next := strings.Index(rest, ","); next >= 0 {
		rest = rest[:next]
	}
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return "", &UnknownTitleError{Name: name, Malformed: true}
	}

	token := strings.ToLower(strings.TrimSpace(rest[:dot]))
	title, ok := titleGroups[token]
	if !ok {
		return "", &UnknownTitleError{Name: name, Token: token}
	}
	return title, nil
}

// AddTitle 为每一行追加 Title 列，遇到无法识别的称谓立即失败
func AddTitle(sc *StageContext, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns("title", df, ColName); err != nil {
		return dataframe.DataFrame{}, err
	}
	names := df.Col(ColName).Records()
	titles := make([]string, len(names))
	counts := make(map[string]int)
	for i, name := range names {
		title, err := ExtractTitle(name)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		titles[i] = title
		counts[title]++
	}
	sc.Log.Debug("titles extracted", zap.Any("counts", counts))
	return df.Mutate(series.New(titles, series.String, ColTitle)), nil
}
