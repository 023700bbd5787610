package callwatch

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads observed rows from a saved snapshot of the CallWatch table.
type FileSource struct {
	rows []Row
}

func NewFileSource(path string, cols Columns, maxRows int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to access %s: %w", path, err)
	}
	defer f.Close()
	rows, err := parseTable(f, cols, maxRows)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return &FileSource{rows: rows}, nil
}

func (s *FileSource) Next(ctx context.Context) (Row, error) {
	if len(s.rows) == 0 {
		return Row{}, ErrNoMoreRows
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}
