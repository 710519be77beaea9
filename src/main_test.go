package main

import (
	"PassengerPrep/src/config"
	"PassengerPrep/src/processor"
	"PassengerPrep/src/storage"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const mainTrainCSV = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
3,1,3,"Heikkinen, Miss. Laina",female,26,0,0,STON/O2. 3101282,7.925,,S
4,1,1,"Futrelle, Mrs. Jacques Heath (Lily May Peel)",female,35,1,0,113803,53.1,C123,S
5,0,3,"Allen, Mr. William Henry",male,,0,0,373450,8.05,,S
`

const mainTestCSV = `PassengerId,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
892,3,"Kelly, Mr. James",male,34.5,0,0,330911,7.8292,,Q
893,3,"Wilkes, Mrs. James (Ellen Needs)",female,47,1,0,363272,7,,S
894,2,"Myles, Mr. Thomas Francis",male,62,0,0,240276,9.6875,,Q
`

// testConfig 在临时目录准备原始数据，返回指向它的配置
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.Default()
	c.DataDir = t.TempDir()
	require.NoError(t, os.MkdirAll(c.RawDir(), 0755))
	require.NoError(t, os.WriteFile(c.Resolve(c.Raw.TrainPath), []byte(mainTrainCSV), 0644))
	require.NoError(t, os.WriteFile(c.Resolve(c.Raw.TestPath), []byte(mainTestCSV), 0644))
	return c
}

func TestRunOnce(t *testing.T) {
	c := testConfig(t)

	res, err := runOnce(context.Background(), c, zap.NewNop(), false, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TrainRows)
	assert.Equal(t, 3, res.TestRows)
	assert.Equal(t, filepath.Join(c.DataDir, "processed", "train.csv"), res.TrainPath)
	assert.FileExists(t, res.TrainPath)
	assert.FileExists(t, res.TestPath)
	assert.Equal(t, []string{"PassengerId", "Survived"}, res.Columns[:2])
}

func TestRunOnceXLSX(t *testing.T) {
	c := testConfig(t)
	c.Processed.Format = config.FormatXLSX
	c.Processed.TrainPath = filepath.Join("processed", "train.xlsx")
	c.Processed.TestPath = filepath.Join("processed", "test.xlsx")

	res, err := runOnce(context.Background(), c, zap.NewNop(), false, false)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(c.DataDir, "processed", "train.xlsx"))
	assert.Equal(t, 3, res.TestRows)
}

func TestRunOnceMissingRawData(t *testing.T) {
	c := config.Default()
	c.DataDir = t.TempDir()

	_, err := runOnce(context.Background(), c, zap.NewNop(), false, false)
	assert.True(t, errors.Is(err, processor.ErrDataSource))
	assert.NoDirExists(t, filepath.Join(c.DataDir, "processed"))
}

func TestRunAndLogRotates(t *testing.T) {
	c := testConfig(t)
	c.LogMaxSize = "1"

	var err error
	appLog, err = storage.NewLogger(filepath.Join(t.TempDir(), "app.log"), false)
	require.NoError(t, err)
	defer func() {
		appLog.Close()
		appLog, logger = nil, nil
	}()
	logger = appLog.Logger

	runAndLog(context.Background(), c, false)
	entries, err := os.ReadDir(filepath.Dir(appLog.Filename()))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadConfigFallback(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	c, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSentinel, c.Sentinel)

	_, err = loadConfig(missing, true)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sentinel: 1\n"), 0644))
	_, err = loadConfig(bad, false)
	assert.Error(t, err)
}

func TestScheduleSpec(t *testing.T) {
	c := config.Default()
	assert.Equal(t, "@every 5m0s", scheduleSpec(c))

	c.Schedule.Spec = "0 0 * * * *"
	assert.Equal(t, "0 0 * * * *", scheduleSpec(c))

	c.Schedule.Spec = ""
	c.Email.CheckInterval = config.Duration(time.Hour)
	assert.Equal(t, "@every 1h0m0s", scheduleSpec(c))
}

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "passengerprep.pid")
	require.NoError(t, writePidFile(path))

	pid, err := readPidFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	_, err = readPidFile(path)
	assert.Error(t, err)

	_, err = readPidFile(filepath.Join(t.TempDir(), "absent.pid"))
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printResult(cmd, &processor.Result{RunID: "r1", TrainRows: 5, TestRows: 3, TrainPath: "a.csv", TestPath: "b.csv", Summary: "ok"})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "run r1\n"))
	assert.Contains(t, out, "a.csv (5 rows)")
	assert.Contains(t, out, "ok")
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "fetch", "watch", "schedule", "reopen-log"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, runCmd.Flags().Lookup("fetch"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
