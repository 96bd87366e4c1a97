package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/holos-company/etldrivers/internal/db"
	"github.com/holos-company/etldrivers/pkg/etl"
)

type appendOptions struct {
	batchSize int
	onCommit  func(etl.ChunkResult)
	clock     func() time.Time
}

// AppendOption customises a single AppendBulk call.
type AppendOption func(*appendOptions)

// WithBatchSize overrides the configured chunk size. Values below 1 are ignored.
func WithBatchSize(n int) AppendOption {
	return func(o *appendOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// OnChunkCommitted registers fn to be called after every committed chunk.
func OnChunkCommitted(fn func(etl.ChunkResult)) AppendOption {
	return func(o *appendOptions) { o.onCommit = fn }
}

// WithInsertTime fills the insert_time column with clock() once per chunk.
// A nil clock means time.Now.
func WithInsertTime(clock func() time.Time) AppendOption {
	return func(o *appendOptions) {
		if clock == nil {
			clock = time.Now
		}
		o.clock = clock
	}
}

// InsertSQL renders the parameterized insert for columns.
func InsertSQL(dialect db.Dialect, name string, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		name, strings.Join(columns, ", "), strings.Join(marks, ", "))
}

// ChunkCount returns the number of chunks needed for rows at batchSize.
func ChunkCount(rows, batchSize int) int {
	if rows <= 0 {
		return 0
	}
	return (rows + batchSize - 1) / batchSize
}

// AppendBulk inserts frame into name in chunks of at most the batch size.
// Each chunk runs in its own transaction and is committed before the next
// one starts. On failure the failing chunk is rolled back, earlier chunks
// stay committed and the returned result counts them.
func (l *Loader) AppendBulk(ctx context.Context, name string, frame *etl.Frame, opts ...AppendOption) (etl.LoadResult, error) {
	o := appendOptions{batchSize: l.cfg.BatchSize}
	for _, opt := range opts {
		opt(&o)
	}

	res := etl.LoadResult{LoadID: uuid.New(), Table: name}

	if err := db.ValidateIdentifier(name); err != nil {
		l.logger.Error("Bulk append rejected: %v", err)
		return res, err
	}
	if err := validateFrame(frame); err != nil {
		l.logger.Error("Bulk append to %s rejected: %v", name, err)
		return res, err
	}

	rows := frame.Normalized()
	columns := append([]string(nil), frame.Columns...)
	if o.clock != nil {
		columns = append(columns, etl.InsertTimeColumn)
	}

	res.TotalRows = len(rows)
	res.TotalChunks = ChunkCount(len(rows), o.batchSize)
	stmt := InsertSQL(l.dialect, name, columns)

	l.logger.Info("Load %s: appending %d rows to %s in %d batches of up to %d",
		res.LoadID, res.TotalRows, name, res.TotalChunks, o.batchSize)
	l.logger.Verbose("Load %s: %s", res.LoadID, stmt)

	err := l.withConn(ctx, func(conn *sql.Conn) error {
		for i := 0; i < res.TotalChunks; i++ {
			start := i * o.batchSize
			end := min(start+o.batchSize, len(rows))
			chunk := rows[start:end]

			if err := l.insertChunk(ctx, conn, stmt, chunk, o.clock); err != nil {
				return fmt.Errorf("%w: batch %d/%d into %s: %w", etl.ErrQuery, i+1, res.TotalChunks, name, err)
			}

			res.CommittedChunks++
			res.CommittedRows += len(chunk)
			l.logger.Verbose("Batch %d/%d committed", i+1, res.TotalChunks)

			if o.onCommit != nil {
				o.onCommit(etl.ChunkResult{LoadID: res.LoadID, Index: i + 1, Total: res.TotalChunks, Rows: len(chunk)})
			}
		}
		return nil
	})
	if err != nil {
		l.logger.Error("Load %s failed after %d/%d batches (%d rows committed): %v",
			res.LoadID, res.CommittedChunks, res.TotalChunks, res.CommittedRows, err)
		return res, err
	}

	l.logger.Info("Load %s: %d rows appended to %s", res.LoadID, res.CommittedRows, name)
	return res, nil
}

// insertChunk runs one chunk in its own transaction.
func (l *Loader) insertChunk(ctx context.Context, conn *sql.Conn, stmt string, chunk [][]any, clock func() time.Time) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.logger.Error("Rollback failed: %v", rbErr)
			}
		}
	}()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer prepared.Close()

	var stamp time.Time
	if clock != nil {
		stamp = clock()
	}

	for _, row := range chunk {
		args := row
		if clock != nil {
			args = append(append(make([]any, 0, len(row)+1), row...), stamp)
		}
		if _, err = prepared.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	if err = prepared.Close(); err != nil {
		return err
	}
	return tx.Commit()
}
