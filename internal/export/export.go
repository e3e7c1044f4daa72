package export

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"tradedominance/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Resolvable drops records without an ISO3 code. Applying it twice is the
// same as applying it once.
func Resolvable(records []pipeline.Record) []pipeline.Record {
	kept := make([]pipeline.Record, 0, len(records))
	for _, record := range records {
		if record.ISO3 == nil {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// WriteJSON writes records as an indented JSON array. The file only appears
// at path once it has been fully written.
func WriteJSON(path string, records []pipeline.Record) error {
	return writeAtomic(path, encodeJSON(records))
}

// Publish writes the JSON file and, when workbookPath is not empty, the
// workbook. Both are staged next to their targets and only renamed into
// place once every write has succeeded.
func Publish(jsonPath, workbookPath string, records []pipeline.Record) error {
	outputs := make([]*staged, 0, 2)
	defer func() {
		for _, output := range outputs {
			output.discard()
		}
	}()

	if workbookPath != "" {
		output, err := stageWorkbook(workbookPath, records)
		if err != nil {
			return err
		}
		outputs = append(outputs, output)
	}
	output, err := stage(jsonPath, encodeJSON(records))
	if err != nil {
		return err
	}
	outputs = append(outputs, output)

	for _, output := range outputs {
		if err := output.commit(); err != nil {
			return err
		}
	}
	return nil
}

func encodeJSON(records []pipeline.Record) func(file *os.File) error {
	if records == nil {
		records = []pipeline.Record{}
	}
	return func(file *os.File) error {
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}
}

// staged is a fully written temp file waiting to be renamed over path.
type staged struct {
	tmp       string
	path      string
	committed bool
}

func stage(path string, write func(file *os.File) error) (_ *staged, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output dir")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return nil, errors.Wrapf(err, "write %s", path)
	}
	if err = tmp.Close(); err != nil {
		return nil, errors.Wrapf(err, "close %s", path)
	}
	return &staged{tmp: tmp.Name(), path: path}, nil
}

func (s *staged) commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		return errors.Wrapf(err, "rename to %s", s.path)
	}
	s.committed = true
	return nil
}

// discard removes the temp file unless it was committed.
func (s *staged) discard() {
	if !s.committed {
		_ = os.Remove(s.tmp)
	}
}

func writeAtomic(path string, write func(file *os.File) error) error {
	output, err := stage(path, write)
	if err != nil {
		return err
	}
	defer output.discard()
	return output.commit()
}
