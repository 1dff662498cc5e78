package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/goblimey/go-cnav/cnav/testdata"
	"github.com/goblimey/go-cnav/yamlconfig"
	"github.com/goblimey/go-tools/testsupport"
)

// TestHandleMessages checks that only the valid page frames pass
// through the filter.
func TestHandleMessages(t *testing.T) {

	page10 := testdata.NewBuilder(7, 10, 30000, false).Seal().Bytes()
	page30 := testdata.NewBuilder(7, 30, 30001, false).Seal().Bytes()

	var input bytes.Buffer
	input.Write([]byte("$GNGGA,chatter"))
	input.Write(page10)
	input.Write([]byte("noise"))
	input.Write(page30)
	input.Write([]byte("tail"))

	var output bytes.Buffer
	var config yamlconfig.Config

	HandleMessages(&input, &output, &config)

	// Give the writer goroutine time to drain.
	time.Sleep(time.Second)

	want := append(append([]byte{}, page10...), page30...)
	got := output.Bytes()

	if !bytes.Equal(got, want) {
		t.Errorf("want %d bytes of valid pages, got %d", len(want), len(got))
	}
}

// TestHandleMessagesWithPageLog checks that the filter keeps a daily
// log of the raw pages when the config asks for one.
//
// NOTE:  this test uses the filestore.
func TestHandleMessagesWithPageLog(t *testing.T) {

	workingDirectory, err := testsupport.CreateWorkingDirectory()
	if err != nil {
		t.Fatalf("createWorkingDirectory failed - %v", err)
	}
	defer testsupport.RemoveWorkingDirectory(workingDirectory)

	logDirectory := workingDirectory + "/pagelog"

	pageFrame := testdata.NewBuilder(7, 11, 30000, false).Seal().Bytes()

	var input bytes.Buffer
	input.Write([]byte("chatter"))
	input.Write(pageFrame)

	var output bytes.Buffer
	config := yamlconfig.Config{RecordPages: true, PageLogDirectory: logDirectory}

	HandleMessages(&input, &output, &config)

	// Give the log writer goroutine time to drain.
	time.Sleep(time.Second)

	// The log directory should contain exactly one datestamped file
	// holding a copy of the page frame.
	fileInfoList, err := os.ReadDir(logDirectory)
	if err != nil {
		t.Fatalf("cannot scan directory %s - %v", logDirectory, err)
	}

	if len(fileInfoList) != 1 {
		t.Fatalf("directory %s contains %d files.  Should be just one.",
			logDirectory, len(fileInfoList))
	}

	pathName := logDirectory + "/" + fileInfoList[0].Name()
	contents, err := os.ReadFile(pathName)
	if err != nil {
		t.Fatalf("cannot read log file %s - %v", pathName, err)
	}

	if !bytes.Equal(contents, pageFrame) {
		t.Errorf("want %d bytes in the page log, got %d",
			len(pageFrame), len(contents))
	}
}
