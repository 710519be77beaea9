package processor

import (
	"PassengerPrep/src/datasource/file"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadCombinesPartitions(t *testing.T) {
	df := loadFixture(t)

	assert.Equal(t, 18, df.Nrow())
	assert.Equal(t, inputColumns, df.Names())
	assert.Equal(t, DefaultSentinel, intCell(t, df, 892, ColSurvived))
	assert.Equal(t, 1, intCell(t, df, 2, ColSurvived))
	// 训练集在前
	ids, err := df.Col(ColPassengerID).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 892}, []int{ids[0], ids[12]})
}

func TestLoadSchemaErrors(t *testing.T) {
	header := "PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked\n"
	tests := []struct {
		name   string
		train  string
		test   string
		column string
	}{
		{
			name:   "unknown port",
			train:  header + `1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5,7.25,,X` + "\n",
			test:   testCSV,
			column: ColEmbarked,
		},
		{
			name:   "label out of domain",
			train:  header + `1,2,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5,7.25,,S` + "\n",
			test:   testCSV,
			column: ColSurvived,
		},
		{
			name:   "unknown sex",
			train:  header + `1,0,3,"Braund, Mr. Owen Harris",unknown,22,1,0,A/5,7.25,,S` + "\n",
			test:   testCSV,
			column: ColSex,
		},
		{
			name:   "class out of range",
			train:  header + `1,0,4,"Braund, Mr. Owen Harris",male,22,1,0,A/5,7.25,,S` + "\n",
			test:   testCSV,
			column: ColPclass,
		},
		{
			name:   "duplicate key across partitions",
			train:  header + `892,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5,7.25,,S` + "\n",
			test:   testCSV,
			column: ColPassengerID,
		},
		{
			name:   "training source without label",
			train:  testCSV,
			test:   testCSV,
			column: ColSurvived,
		},
		{
			name:   "missing fare column",
			train:  trainCSV,
			test:   "PassengerId,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Cabin,Embarked\n" + `892,3,"Kelly, Mr. James",male,34.5,0,0,330911,,Q` + "\n",
			column: ColFare,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeFixture(t, tt.train, tt.test), "", DefaultSentinel, zap.NewNop())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchema))

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.column, schemaErr.Column)
		})
	}
}

func TestLoadDataSourceErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		provider := writeFixture(t, trainCSV, testCSV)
		provider.TestPath = filepath.Join(t.TempDir(), "absent.csv")
		_, err := Load(context.Background(), provider, "", DefaultSentinel, zap.NewNop())
		var srcErr *DataSourceError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, "absent.csv", srcErr.Source)
	})

	t.Run("no key column", func(t *testing.T) {
		test := strings.Replace(testCSV, "PassengerId,", "Id,", 1)
		_, err := Load(context.Background(), writeFixture(t, trainCSV, test), "", DefaultSentinel, zap.NewNop())
		assert.True(t, errors.Is(err, ErrDataSource))
	})

	t.Run("header only", func(t *testing.T) {
		_, err := Load(context.Background(), writeFixture(t, trainCSV, "PassengerId,Name\n"), "", DefaultSentinel, zap.NewNop())
		assert.True(t, errors.Is(err, ErrDataSource))
	})
}

func TestLoadKeepsScoringNulls(t *testing.T) {
	test := testCSV + `1310,3,"Nemo, Mr. Arthur",male,30,0,0,A 111,8.05,,` + "\n"
	df, err := Load(context.Background(), writeFixture(t, trainCSV, test), "", DefaultSentinel, zap.NewNop())
	require.NoError(t, err)

	// 预测集部分的空白单元格合并后仍是缺失值
	assert.True(t, cell(t, df, 892, ColCabin).IsNA())
	assert.True(t, cell(t, df, 1310, ColEmbarked).IsNA())
	assert.True(t, cell(t, df, 1, ColCabin).IsNA())
	assert.False(t, cell(t, df, 1306, ColCabin).IsNA())

	out := runStages(t, df, AddTitle, FillMissing, AddDerived)
	assert.Equal(t, DefaultEmbarked, cell(t, out, 1310, ColEmbarked).String())
	assert.Equal(t, UnknownDeck, cell(t, out, 892, ColDeck).String())
	assert.Equal(t, UnknownDeck, cell(t, out, 1310, ColDeck).String())
	assert.Equal(t, "C", cell(t, out, 1306, ColDeck).String())
	assert.NotContains(t, out.Col(ColDeck).Records(), "N")
	assert.NotContains(t, out.Col(ColEmbarked).Records(), "NaN")
}

func TestLoadExtraColumnsDropped(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(trainCSV, "\n"), "\n")
	lines[0] += ",Boat"
	for i := 1; i < len(lines); i++ {
		lines[i] += ",13"
	}
	train := strings.Join(lines, "\n") + "\n"

	df, err := Load(context.Background(), writeFixture(t, train, testCSV), "", DefaultSentinel, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, inputColumns, df.Names())
	assert.Equal(t, 18, df.Nrow())
}

func TestLoadXLSXSource(t *testing.T) {
	csvProvider := writeFixture(t, trainCSV, testCSV)
	train, err := file.ReadFile(csvProvider.TrainPath, "", InputTypes())
	require.NoError(t, err)
	test, err := file.ReadFile(csvProvider.TestPath, "", nil)
	require.NoError(t, err)

	dir := t.TempDir()
	provider := NewFileProvider(filepath.Join(dir, "train.xlsx"), filepath.Join(dir, "test.xlsx"))
	require.NoError(t, file.SaveToExcel(train, provider.TrainPath))
	require.NoError(t, file.SaveToExcel(test, provider.TestPath))

	fromXLSX, err := Load(context.Background(), provider, "Sheet1", DefaultSentinel, zap.NewNop())
	require.NoError(t, err)
	fromCSV := loadFixture(t)
	assert.Equal(t, fromCSV.Records(), fromXLSX.Records())
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, writeFixture(t, trainCSV, testCSV), "", DefaultSentinel, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
