// Package callwatch produces observed rows from snapshots of the CallWatch
// monitoring table, either fetched over HTTP or read from saved snapshot files.
package callwatch

import (
	"context"
	"errors"
)

// Row is one observed transmission: the radio identity plus the talk group and
// network labels it was seen on. Rows are transient; they are never persisted.
type Row struct {
	RadioID int
	Group   string
	Network string
}

// ErrNoMoreRows signals normal exhaustion of a source.
var ErrNoMoreRows = errors.New("no more rows")

// Source yields a finite sequence of observed rows. A source is not
// restartable once drained.
type Source interface {
	Next(ctx context.Context) (Row, error)
}

// Collect drains a source into a slice. Exhaustion is not an error.
func Collect(ctx context.Context, src Source) ([]Row, error) {
	var rows []Row
	for {
		row, err := src.Next(ctx)
		if errors.Is(err, ErrNoMoreRows) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
