// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package logfile reads line-delimited log files into the message form
// plugins consume. Each line is one record: an optional RFC 3339 timestamp
// and source, tab-separated, followed by the payload. Lines that do not
// match the framing are kept whole as raw payloads, so any text log loads.
package logfile

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/samber/oops"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// Error codes for log file access failures.
const (
	CodeOpenFailed = "LOG_OPEN_FAILED"
	CodeReadFailed = "LOG_READ_FAILED"
	CodeOutOfRange = "LOG_INDEX_OUT_OF_RANGE"
	CodeFileShrunk = "LOG_FILE_SHRUNK"
)

// File is an in-memory view over a line-delimited log. It satisfies the
// read-only handle viewers receive during the bulk phase and additionally
// supports polling for appended records. Safe for concurrent use.
type File struct {
	path string

	mu     sync.RWMutex
	msgs   []*pluginpkg.Message
	offset int64
}

// Open reads every record currently in the file at path.
func Open(path string) (*File, error) {
	f := &File{path: path}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// load performs the initial full read.
func (f *File) load() error {
	r, err := os.Open(f.path) //nolint:gosec // path comes from the operator
	if err != nil {
		return oops.Code(CodeOpenFailed).With("path", f.path).Wrap(err)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	msgs, n, err := scanRecords(r, 0)
	if err != nil {
		return oops.Code(CodeReadFailed).With("path", f.path).Wrap(err)
	}

	f.mu.Lock()
	f.msgs = msgs
	f.offset = n
	f.mu.Unlock()
	return nil
}

// Path returns the file's path.
func (f *File) Path() string { return f.path }

// MessageCount returns the number of records read so far.
func (f *File) MessageCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.msgs)
}

// MessageAt returns the record at index.
func (f *File) MessageAt(index int) (*pluginpkg.Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if index < 0 || index >= len(f.msgs) {
		return nil, oops.Code(CodeOutOfRange).
			With("index", index).
			With("count", len(f.msgs)).
			Errorf("message index %d out of range", index)
	}
	return f.msgs[index], nil
}

// Poll reads records appended since the last read and returns them with
// their assigned indices. It returns nil when nothing new arrived. A file
// that shrank below the last read offset (rotation, truncation) is an
// error; the caller should reopen.
func (f *File) Poll() ([]*pluginpkg.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := os.Open(f.path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, oops.Code(CodeOpenFailed).With("path", f.path).Wrap(err)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	info, err := r.Stat()
	if err != nil {
		return nil, oops.Code(CodeReadFailed).With("path", f.path).Wrap(err)
	}
	if info.Size() < f.offset {
		return nil, oops.Code(CodeFileShrunk).
			With("path", f.path).
			With("size", info.Size()).
			With("offset", f.offset).
			Errorf("log file shrank from %d to %d bytes", f.offset, info.Size())
	}
	if info.Size() == f.offset {
		return nil, nil
	}

	if _, err := r.Seek(f.offset, io.SeekStart); err != nil {
		return nil, oops.Code(CodeReadFailed).With("path", f.path).Wrap(err)
	}

	added, n, err := scanRecords(r, len(f.msgs))
	if err != nil {
		return nil, oops.Code(CodeReadFailed).With("path", f.path).Wrap(err)
	}

	f.msgs = append(f.msgs, added...)
	f.offset += n
	return added, nil
}

// scanRecords parses complete lines from r into messages starting at
// firstIndex. It returns the messages and how many bytes of complete lines
// were consumed, so a partially written trailing line is picked up by the
// next poll instead of being delivered truncated.
func scanRecords(r io.Reader, firstIndex int) ([]*pluginpkg.Message, int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		msgs     []*pluginpkg.Message
		consumed int64
		index    = firstIndex
	)
	for {
		line, err := br.ReadBytes('\n')
		if err == io.EOF {
			// An incomplete trailing line belongs to a writer still mid
			// record; it will be complete by a later poll.
			return msgs, consumed, nil
		}
		if err != nil {
			return nil, 0, err
		}
		consumed += int64(len(line))

		line = bytes.TrimSuffix(line, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		msgs = append(msgs, parseRecord(index, line))
		index++
	}
}

// parseRecord builds one message from a line, peeling the optional
// "timestamp\tsource\t" framing off the payload. A line without the
// framing becomes the payload whole.
func parseRecord(index int, line []byte) *pluginpkg.Message {
	payload := line
	var (
		ts     time.Time
		source string
	)
	if parts := bytes.SplitN(line, []byte{'\t'}, 3); len(parts) == 3 {
		if parsed, err := time.Parse(time.RFC3339, string(parts[0])); err == nil {
			ts = parsed
			source = string(parts[1])
			payload = parts[2]
		}
	}

	raw := make([]byte, len(payload))
	copy(raw, payload)
	msg := pluginpkg.NewMessage(index, raw)
	msg.Timestamp = ts
	msg.Source = source
	return msg
}

var _ pluginpkg.LogFile = (*File)(nil)
