package processor

import (
	"PassengerPrep/src/utils"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 输入列
const (
	ColPassengerID = "PassengerId"
	ColSurvived    = "Survived"
	ColPclass      = "Pclass"
	ColName        = "Name"
	ColSex         = "Sex"
	ColAge         = "Age"
	ColSibSp       = "SibSp"
	ColParch       = "Parch"
	ColTicket      = "Ticket"
	ColFare        = "Fare"
	ColCabin       = "Cabin"
	ColEmbarked    = "Embarked"
)

// 派生列
const (
	ColTitle      = "Title"
	ColFareBin    = "Fare_Bin"
	ColAgeState   = "AgeState"
	ColFamilySize = "FamilySize"
	ColIsMother   = "IsMother"
	ColDeck       = "Deck"
	ColIsMale     = "IsMale"
)

// DefaultSentinel 预测集的标签占位值，不可能是真实标签
const DefaultSentinel = -888

// inputColumns 合并表的列顺序，与训练集原始表头一致
var inputColumns = []string{
	ColPassengerID, ColSurvived, ColPclass, ColName, ColSex, ColAge,
	ColSibSp, ColParch, ColTicket, ColFare, ColCabin, ColEmbarked,
}

// InputTypes 读取原始数据时强制使用的列类型
func InputTypes() map[string]series.Type {
	return map[string]series.Type{
		ColPassengerID: series.Int,
		ColSurvived:    series.Int,
		ColPclass:      series.Int,
		ColName:        series.String,
		ColSex:         series.String,
		ColAge:         series.Float,
		ColSibSp:       series.Int,
		ColParch:       series.Int,
		ColTicket:      series.String,
		ColFare:        series.Float,
		ColCabin:       series.String,
		ColEmbarked:    series.String,
	}
}

var (
	validPclass   = map[int]bool{1: true, 2: true, 3: true}
	validSex      = map[string]bool{"male": true, "female": true}
	validEmbarked = map[string]bool{"C": true, "Q": true, "S": true}
	validLabel    = map[int]bool{0: true, 1: true}
)

// requireColumns 阶段开始前确认所需列存在，gota 对不存在的列取值会 panic
func requireColumns(stage string, df dataframe.DataFrame, names ...string) error {
	if err := df.Error(); err != nil {
		return err
	}
	if missing := utils.MissingColumns(df, names...); len(missing) > 0 {
		return NewSchemaError(stage, strings.Join(missing, ","), "required columns missing")
	}
	return nil
}
