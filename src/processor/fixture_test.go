package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const trainCSV = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
3,1,3,"Heikkinen, Miss. Laina",female,26,0,0,STON/O2. 3101282,7.925,,S
4,1,1,"Futrelle, Mrs. Jacques Heath (Lily May Peel)",female,35,1,0,113803,53.1,C123,S
5,0,3,"Allen, Mr. William Henry",male,35,0,0,373450,8.05,,S
6,0,3,"Moran, Mr. James",male,,0,0,330877,8.4583,,Q
7,0,1,"McCarthy, Mr. Timothy J",male,54,0,0,17463,51.8625,E46,S
8,0,3,"Palsson, Master. Gosta Leonard",male,2,3,1,349909,21.075,,S
9,1,3,"Johnson, Mrs. Oscar W (Elisabeth Vilhelmina Berg)",female,27,0,2,347742,11.1333,,S
10,1,2,"Nasser, Mrs. Nicholas (Adele Achem)",female,14,1,0,237736,30.0708,,C
62,1,1,"Icard, Miss. Amelie",female,38,0,0,113572,80,B28,
340,0,1,"Blackwell, Mr. Stephen Weart",male,45,0,0,113784,35.5,T,S
`

const testCSV = `PassengerId,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
892,3,"Kelly, Mr. James",male,34.5,0,0,330911,7.8292,,Q
893,3,"Wilkes, Mrs. James (Ellen Needs)",female,47,1,0,363272,7,,S
894,2,"Myles, Mr. Thomas Francis",male,62,0,0,240276,9.6875,,Q
1009,3,"Peter, Master. Michael J",male,,1,1,2668,22.3583,,C
1044,3,"Storey, Mr. Thomas",male,60.5,0,0,3701,,,S
1306,1,"Oliva y Ocana, Dona. Fermina",female,39,0,0,PC 17758,108.9,C105,C
`

// 训练集 + 预测集经过全部阶段后的列
var expectedColumns = []string{
	"PassengerId", "Survived", "Age", "Fare", "FamilySize", "IsMother", "IsMale",
	"Deck_B", "Deck_C", "Deck_E", "Deck_Z",
	"Pclass_1", "Pclass_2", "Pclass_3",
	"Title_Lady", "Title_Master", "Title_Miss", "Title_Mr", "Title_Mrs",
	"Fare_Bin_very_low", "Fare_Bin_low", "Fare_Bin_high", "Fare_Bin_very_high",
	"Embarked_C", "Embarked_Q", "Embarked_S",
	"AgeState_Adult", "AgeState_Child",
}

// writeFixture 在临时目录写入原始数据，返回对应的 FileProvider
func writeFixture(t *testing.T, train, test string) *FileProvider {
	t.Helper()
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.csv")
	testPath := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(trainPath, []byte(train), 0644))
	require.NoError(t, os.WriteFile(testPath, []byte(test), 0644))
	return NewFileProvider(trainPath, testPath)
}

func testStageContext() *StageContext {
	return &StageContext{Ctx: context.Background(), Log: zap.NewNop(), Sentinel: DefaultSentinel}
}

// loadFixture 读取并合并默认样例数据
func loadFixture(t *testing.T) dataframe.DataFrame {
	t.Helper()
	df, err := Load(context.Background(), writeFixture(t, trainCSV, testCSV), "", DefaultSentinel, zap.NewNop())
	require.NoError(t, err)
	return df
}

// runStages 依次执行给定阶段
func runStages(t *testing.T, df dataframe.DataFrame, stages ...StageFunc) dataframe.DataFrame {
	t.Helper()
	sc := testStageContext()
	for _, stage := range stages {
		var err error
		df, err = stage(sc, df)
		require.NoError(t, err)
	}
	return df
}

func rowOf(t *testing.T, df dataframe.DataFrame, id int) int {
	t.Helper()
	ids, err := df.Col(ColPassengerID).Int()
	require.NoError(t, err)
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	t.Fatalf("PassengerId %d not found", id)
	return -1
}

func cell(t *testing.T, df dataframe.DataFrame, id int, col string) series.Element {
	t.Helper()
	return df.Col(col).Elem(rowOf(t, df, id))
}
