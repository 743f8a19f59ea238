package chain

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"provenant-hq/scribe/pkg/ledger"
)

// tailChunkSize is the read granularity when scanning backwards for the
// last newline.
const tailChunkSize = 32 * 1024

// maxLineSize bounds a single record line. Records are metadata plus
// truncated text fields; anything beyond this is corruption, not data.
const maxLineSize = 4 * 1024 * 1024

// Reader reads fully-written records from a JSONL log. Readers never take
// the write lock: a concurrent appender only ever adds bytes after the last
// newline the reader observes, so reading up to that newline is always
// consistent.
type Reader struct {
	path string
}

// NewReader creates a reader for the given log file.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the log file the reader scans.
func (r *Reader) Path() string {
	return r.path
}

// ReadAll returns every fully-written record in append order. An absent or
// empty log yields an empty slice. A final line without a trailing newline
// is a write in flight: it is excluded, not an error, and will appear on
// the next call once the writer finishes.
func (r *Reader) ReadAll(ctx context.Context) ([]map[string]any, error) {
	var records []map[string]any
	err := r.Scan(ctx, func(_ int, envelope map[string]any) error {
		records = append(records, envelope)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Scan streams fully-written records to fn in append order, passing the
// 1-based line number. Returning an error from fn stops the scan and
// propagates the error. A mid-file line that fails to parse is corruption
// and yields a CorruptLogError.
//
// The scan works against a size snapshot taken up front. Appenders only
// ever add bytes past that point, so every byte within the snapshot is
// stable for the duration of the scan; whether the snapshot's last line
// is complete is decided by the snapshot's final byte, never by looking
// at the live file again. A writer finishing the partial tail mid-scan
// therefore cannot turn the stale prefix into a phantom record.
func (r *Reader) Scan(ctx context.Context, fn func(line int, envelope map[string]any) error) error {
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		// Absent log: valid initial state.
		return nil
	}
	if err != nil {
		return ledger.NewStorageError("jsonl", "open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ledger.NewStorageError("jsonl", "stat", err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return ledger.NewStorageError("jsonl", "read-tail", err)
	}
	terminated := last[0] == '\n'

	scanner := bufio.NewScanner(io.LimitReader(f, size))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	var pending []byte

	// bufio.Scanner reports a final line whether or not it is newline-
	// terminated, so hold each line back until the next one proves it was
	// complete; the snapshot's terminal byte settles the last one.
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pending != nil {
			line++
			if err := r.emit(line, pending, fn); err != nil {
				return err
			}
		}
		pending = append([]byte(nil), scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return ledger.NewStorageError("jsonl", "scan", err)
	}

	if pending != nil && terminated {
		line++
		if err := r.emit(line, pending, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) emit(line int, raw []byte, fn func(int, map[string]any) error) error {
	envelope, err := DecodeEnvelope(raw)
	if err != nil {
		return ledger.NewCorruptLogError(r.path, line, fmt.Errorf("record is not parseable: %w", err))
	}
	return fn(line, envelope)
}

// readTailLine returns the last newline-terminated line of the file along
// with whether the file itself ends in a newline. It scans backwards in
// chunks so appends stay O(1) in log size.
func readTailLine(path string, size int64) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return nil, false, err
	}
	terminated := last[0] == '\n'

	// End of the line being sought: past the trailing newline if present,
	// otherwise end of file (the partial tail is then the "line").
	end := size
	if terminated {
		end = size - 1
	}

	var tail []byte
	pos := end
	for pos > 0 {
		chunkStart := pos - tailChunkSize
		if chunkStart < 0 {
			chunkStart = 0
		}
		chunk := make([]byte, pos-chunkStart)
		if _, err := f.ReadAt(chunk, chunkStart); err != nil && err != io.EOF {
			return nil, false, err
		}
		tail = append(chunk, tail...)

		// chunk is now the prefix of tail, so an index into chunk is an
		// index into tail.
		if idx := bytes.LastIndexByte(chunk, '\n'); idx >= 0 {
			return tail[idx+1:], terminated, nil
		}
		if int64(len(tail)) > maxLineSize {
			return nil, false, fmt.Errorf("tail line exceeds %d bytes", maxLineSize)
		}
		pos = chunkStart
	}
	return tail, terminated, nil
}
