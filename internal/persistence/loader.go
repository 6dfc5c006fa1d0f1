package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/eternalApril/phonebook/internal/wire"
)

// Load reads the journal file and returns the records to be replayed.
// A truncated last record (crash mid-write) is dropped, not reported
func (j *Journal) Load() ([]wire.Record, error) {
	file, err := os.Open(j.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Fresh start
		}
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	dec := json.NewDecoder(bufio.NewReader(file))
	var records []wire.Record

	for {
		var rec wire.Record
		err := dec.Decode(&rec)
		if err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return records, fmt.Errorf("journal record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// repairTail cuts a torn last record off the journal file and makes sure the
// file ends with a newline, so new records start on a line of their own.
// A corrupted record in the middle is left for Load to report
func (j *Journal) repairTail() error {
	info, err := j.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	dec := json.NewDecoder(bufio.NewReader(io.NewSectionReader(j.file, 0, size)))
	var good int64 // end offset of the last complete record

	for {
		var rec wire.Record
		err := dec.Decode(&rec)
		if err == nil {
			good = dec.InputOffset()
			continue
		}
		if err == io.EOF {
			break
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}

		j.logger.Warn("journal ends with a truncated record, cutting it off",
			zap.String("file", j.filename),
			zap.Int64("offset", good),
			zap.Int64("dropped_bytes", size-good),
		)
		if err := j.file.Truncate(good); err != nil {
			return fmt.Errorf("truncate journal: %w", err)
		}
		size = good
		break
	}

	if size == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := j.file.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("read journal tail: %w", err)
	}
	if last[0] != '\n' {
		// O_APPEND: the write lands at the new end of file
		if _, err := j.file.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("terminate journal: %w", err)
		}
	}
	return nil
}
