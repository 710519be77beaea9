package processor

import (
	"github.com/go-gota/gota/dataframe"
)

// Split 按标签列拆分：标签等于 sentinel 的行进入预测集（去掉标签列），其余进入训练集
func Split(df dataframe.DataFrame, sentinel int) (train, test dataframe.DataFrame, err error) {
	if err := requireColumns("split", df, ColSurvived); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}
	labels, err := df.Col(ColSurvived).Int()
	if err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}

	var trainIdx, testIdx []int
	for i, l := range labels {
		if l == sentinel {
			testIdx = append(testIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
		}
	}

	train = df.Subset(trainIdx)
	test = df.Subset(testIdx).Drop(ColSurvived)
	if err := train.Error(); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}
	if err := test.Error(); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}
	return train, test, nil
}
