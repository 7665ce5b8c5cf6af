// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package logfile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/logfile"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpenReadsFramedRecords(t *testing.T) {
	path := writeLog(t, "2026-08-23T10:00:00Z\tecu-1\tengine started\n"+
		"2026-08-23T10:00:01Z\tecu-2\tNV|42 cold start\n")

	f, err := logfile.Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())
	require.Equal(t, 2, f.MessageCount())

	msg, err := f.MessageAt(0)
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Index())
	assert.Equal(t, "engine started", string(msg.Raw()))
	assert.Equal(t, "ecu-1", msg.Source)
	assert.Equal(t, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC), msg.Timestamp)

	msg, err = f.MessageAt(1)
	require.NoError(t, err)
	assert.Equal(t, "NV|42 cold start", string(msg.Raw()))
	assert.Equal(t, "ecu-2", msg.Source)
}

func TestOpenKeepsUnframedLinesWhole(t *testing.T) {
	path := writeLog(t, "just a plain line\nnot-a-timestamp\tecu\tstill plain\n")

	f, err := logfile.Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, f.MessageCount())

	msg, err := f.MessageAt(0)
	require.NoError(t, err)
	assert.Equal(t, "just a plain line", string(msg.Raw()))
	assert.Empty(t, msg.Source)
	assert.True(t, msg.Timestamp.IsZero())

	// A bad timestamp means the framing does not apply.
	msg, err = f.MessageAt(1)
	require.NoError(t, err)
	assert.Equal(t, "not-a-timestamp\tecu\tstill plain", string(msg.Raw()))
}

func TestOpenEmptyFile(t *testing.T) {
	f, err := logfile.Open(writeLog(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 0, f.MessageCount())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := logfile.Open(filepath.Join(t.TempDir(), "absent.log"))
	require.Error(t, err)
}

func TestMessageAtOutOfRange(t *testing.T) {
	f, err := logfile.Open(writeLog(t, "one\n"))
	require.NoError(t, err)

	_, err = f.MessageAt(1)
	assert.Error(t, err)
	_, err = f.MessageAt(-1)
	assert.Error(t, err)
}

func TestPollPicksUpAppendedRecords(t *testing.T) {
	path := writeLog(t, "one\ntwo\n")
	f, err := logfile.Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, f.MessageCount())

	added, err := f.Poll()
	require.NoError(t, err)
	assert.Nil(t, added, "no new data means no new messages")

	appendLog(t, path, "three\nfour\n")
	added, err = f.Poll()
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, 2, added[0].Index())
	assert.Equal(t, "three", string(added[0].Raw()))
	assert.Equal(t, 3, added[1].Index())
	assert.Equal(t, 4, f.MessageCount())
}

func TestPollWaitsForCompleteLines(t *testing.T) {
	path := writeLog(t, "one\n")
	f, err := logfile.Open(path)
	require.NoError(t, err)

	// A writer mid-line: the partial record must not be delivered yet.
	appendLog(t, path, "partial")
	added, err := f.Poll()
	require.NoError(t, err)
	assert.Empty(t, added)

	appendLog(t, path, " now complete\n")
	added, err = f.Poll()
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "partial now complete", string(added[0].Raw()))
}

func TestPollDetectsTruncation(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\n")
	f, err := logfile.Open(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o600))
	_, err = f.Poll()
	require.Error(t, err)
}
