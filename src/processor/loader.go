package processor

import (
	"PassengerPrep/src/datasource/file"
	"PassengerPrep/src/utils"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Load 并发读取训练集和预测集，预测集标签置为 sentinel 后按行合并
func Load(ctx context.Context, provider RawDataProvider, sheetName string, sentinel int, log *zap.Logger) (dataframe.DataFrame, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var train, test dataframe.DataFrame
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		df, err := loadSource(ctx, provider.Train(), sheetName)
		if err != nil {
			return err
		}
		train = df
		return nil
	})
	g.Go(func() error {
		df, err := loadSource(ctx, provider.Test(), sheetName)
		if err != nil {
			return err
		}
		test = df
		return nil
	})
	if err := g.Wait(); err != nil {
		return dataframe.DataFrame{}, err
	}
	log.Info("raw data read",
		zap.String("train", provider.Train().Name()),
		zap.Int("train_rows", train.Nrow()),
		zap.String("test", provider.Test().Name()),
		zap.Int("test_rows", test.Nrow()))

	trainName, testName := provider.Train().Name(), provider.Test().Name()
	if !utils.HasColumn(train, ColSurvived) {
		return dataframe.DataFrame{}, NewSchemaError(trainName, ColSurvived, "label column missing from training source")
	}
	if err := validateLabels(trainName, train.Col(ColSurvived)); err != nil {
		return dataframe.DataFrame{}, err
	}

	// 预测集本来没有标签列，有的话也覆盖
	test = test.Mutate(series.New(repeatInt(sentinel, test.Nrow()), series.Int, ColSurvived))

	for _, part := range []struct {
		name string
		df   *dataframe.DataFrame
	}{{trainName, &train}, {testName, &test}} {
		if missing := utils.MissingColumns(*part.df, inputColumns...); len(missing) > 0 {
			return dataframe.DataFrame{}, NewSchemaError(part.name, strings.Join(missing, ","), "required columns missing")
		}
		// 多余的列丢弃，列顺序统一
		*part.df = part.df.Select(inputColumns)
		if err := validateDomains(part.name, *part.df); err != nil {
			return dataframe.DataFrame{}, err
		}
	}

	combined := restoreStringNA(train.RBind(test))
	if err := combined.Error(); err != nil {
		return dataframe.DataFrame{}, NewDataSourceError(trainName+"+"+testName, "cannot combine sources", err)
	}
	if err := validateUniqueKeys(trainName+"+"+testName, combined.Col(ColPassengerID)); err != nil {
		return dataframe.DataFrame{}, err
	}
	log.Info("data frame constructed", zap.Int("rows", combined.Nrow()), zap.Int("cols", combined.Ncol()))
	return combined, nil
}

// loadSource 打开并解析一份原始数据，要求至少包含主键列
func loadSource(ctx context.Context, src Source, sheetName string) (dataframe.DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}

	rc, err := src.Open()
	if err != nil {
		return dataframe.DataFrame{}, NewDataSourceError(src.Name(), "cannot open", err)
	}
	defer rc.Close()

	var df dataframe.DataFrame
	switch strings.ToLower(filepath.Ext(src.Name())) {
	case file.ExtXLSX:
		data, err := io.ReadAll(rc)
		if err != nil {
			return dataframe.DataFrame{}, NewDataSourceError(src.Name(), "cannot read", err)
		}
		df, err = file.ReadXLSX(data, sheetName, InputTypes())
		if err != nil {
			return dataframe.DataFrame{}, NewDataSourceError(src.Name(), "cannot parse", err)
		}
	default:
		df, err = file.ReadCSV(rc, InputTypes())
		if err != nil {
			return dataframe.DataFrame{}, NewDataSourceError(src.Name(), "cannot parse", err)
		}
	}

	if !utils.HasColumn(df, ColPassengerID) {
		return dataframe.DataFrame{}, NewDataSourceError(src.Name(), "key column "+ColPassengerID+" missing", nil)
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, NewDataSourceError(src.Name(), "no rows", nil)
	}
	return df, nil
}

func validateLabels(source string, s series.Series) error {
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			return NewSchemaError(source, ColSurvived, fmt.Sprintf("row %d: label missing", i+1))
		}
		v, _ := e.Int()
		if !validLabel[v] {
			return NewSchemaError(source, ColSurvived, fmt.Sprintf("row %d: label %d not in {0,1}", i+1, v))
		}
	}
	return nil
}

// validateDomains 检查取值范围固定的列，Embarked 允许缺失
func validateDomains(source string, df dataframe.DataFrame) error {
	ids := df.Col(ColPassengerID)
	for i := 0; i < ids.Len(); i++ {
		if ids.Elem(i).IsNA() {
			return NewSchemaError(source, ColPassengerID, fmt.Sprintf("row %d: key missing", i+1))
		}
	}

	pclass := df.Col(ColPclass)
	for i := 0; i < pclass.Len(); i++ {
		v, err := pclass.Elem(i).Int()
		if err != nil || !validPclass[v] {
			return NewSchemaError(source, ColPclass, fmt.Sprintf("row %d: value %q not in {1,2,3}", i+1, pclass.Elem(i).String()))
		}
	}

	sex := df.Col(ColSex)
	for i := 0; i < sex.Len(); i++ {
		if e := sex.Elem(i); e.IsNA() || !validSex[e.String()] {
			return NewSchemaError(source, ColSex, fmt.Sprintf("row %d: value %q not in {male,female}", i+1, e.String()))
		}
	}

	embarked := df.Col(ColEmbarked)
	for i := 0; i < embarked.Len(); i++ {
		if e := embarked.Elem(i); !e.IsNA() && !validEmbarked[e.String()] {
			return NewSchemaError(source, ColEmbarked, fmt.Sprintf("row %d: port %q not in {C,Q,S}", i+1, e.String()))
		}
	}

	name := df.Col(ColName)
	for i := 0; i < name.Len(); i++ {
		if name.Elem(i).IsNA() {
			return NewSchemaError(source, ColName, fmt.Sprintf("row %d: name missing", i+1))
		}
	}

	for _, col := range []string{ColSibSp, ColParch} {
		s := df.Col(col)
		for i := 0; i < s.Len(); i++ {
			if v, err := s.Elem(i).Int(); err != nil || v < 0 {
				return NewSchemaError(source, col, fmt.Sprintf("row %d: count %q invalid", i+1, s.Elem(i).String()))
			}
		}
	}
	return nil
}

func validateUniqueKeys(source string, ids series.Series) error {
	seen := make(map[int]bool, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		id, _ := ids.Elem(i).Int()
		if seen[id] {
			return NewSchemaError(source, ColPassengerID, fmt.Sprintf("duplicate key %d", id))
		}
		seen[id] = true
	}
	return nil
}

// restoreStringNA RBind 复制字符串元素时丢掉了缺失标记（追加部分只剩 "NaN" 文本），
// 按记录重建字符串列，"NaN" 会重新被识别为缺失
func restoreStringNA(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Error() != nil {
		return df
	}
	for _, name := range df.Names() {
		col := df.Col(name)
		if col.Type() != series.String {
			continue
		}
		df = df.Mutate(series.New(col.Records(), series.String, name))
	}
	return df
}

func repeatInt(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
