package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource serves rows from a JSON array of objects on disk. The file is
// re-read on every lookup so edits show up without a restart.
type FileSource struct {
	path string
}

func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSource) Rows(context.Context) ([]Record, error) {
	return s.read()
}

func (s *FileSource) read() ([]Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []Record
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode routes file %s: %w", s.path, err)
	}
	return rows, nil
}
