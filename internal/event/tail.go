package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
)

// Tail reads complete records appended after offset and returns them
// with the new offset. A partial trailing line is left for the next
// call. A missing file yields no records; a truncated file restarts
// from the beginning.
func Tail(path string, offset int64) ([]Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return nil, offset, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, err
	}

	var records []Record
	for len(data) > 0 {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			break
		}
		line := data[:nl]
		data = data[nl+1:]
		offset += int64(nl + 1)
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			// Foreign or corrupt line; the log is diagnostic, skip it.
			continue
		}
		records = append(records, r)
	}
	return records, offset, nil
}
