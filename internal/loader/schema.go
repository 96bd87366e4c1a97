package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/holos-company/etldrivers/internal/db"
	"github.com/holos-company/etldrivers/pkg/etl"
)

// InferKind picks the storage class for a column from its non-null values.
//
// Integers map to KindInteger, any float (mixed with integers or not) to
// KindFloat, time.Time to KindDateTime and bool to KindBool. Strings,
// mixed kinds, unknown types and all-null columns fall back to KindText.
func InferKind(values []any) db.ColumnKind {
	var ints, floats, times, bools, others int
	for _, v := range values {
		if etl.IsNull(v) {
			continue
		}
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			ints++
		case float32, float64:
			floats++
		case time.Time:
			times++
		case bool:
			bools++
		default:
			others++
		}
	}

	numeric := ints + floats
	switch {
	case others > 0:
		return db.KindText
	case numeric > 0 && times == 0 && bools == 0:
		if floats > 0 {
			return db.KindFloat
		}
		return db.KindInteger
	case times > 0 && numeric == 0 && bools == 0:
		return db.KindDateTime
	case bools > 0 && numeric == 0 && times == 0:
		return db.KindBool
	}
	return db.KindText
}

// ColumnDef is one column of a generated CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Kind db.ColumnKind
	Type string
}

// Schema infers the column definitions for frame, followed by the
// trailing insert_time column.
func Schema(dialect db.Dialect, frame *etl.Frame) ([]ColumnDef, error) {
	if err := validateFrame(frame); err != nil {
		return nil, err
	}

	defs := make([]ColumnDef, 0, len(frame.Columns)+1)
	for i, name := range frame.Columns {
		kind := InferKind(frame.Column(i))
		defs = append(defs, ColumnDef{Name: name, Kind: kind, Type: dialect.ColumnType(kind)})
	}
	defs = append(defs, ColumnDef{
		Name: etl.InsertTimeColumn,
		Kind: db.KindDateTime,
		Type: dialect.ColumnType(db.KindDateTime),
	})
	return defs, nil
}

// CreateTableSQL renders the DDL for name.
func CreateTableSQL(name string, defs []ColumnDef) string {
	cols := make([]string, len(defs))
	for i, d := range defs {
		cols[i] = d.Name + " " + d.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", name, strings.Join(cols, ", "))
}

// CreateTable creates name with one column per frame column plus insert_time.
func (l *Loader) CreateTable(ctx context.Context, name string, frame *etl.Frame) error {
	if err := db.ValidateIdentifier(name); err != nil {
		l.logger.Error("Failed to create table: %v", err)
		return err
	}
	defs, err := Schema(l.dialect, frame)
	if err != nil {
		l.logger.Error("Failed to create table %s: %v", name, err)
		return err
	}

	stmt := CreateTableSQL(name, defs)
	l.logger.Verbose("Executing: %s", stmt)

	err = l.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create table %s: %w", etl.ErrQuery, name, err)
		}
		return nil
	})
	if err != nil {
		l.logger.Error("Failed to create table %s: %v", name, err)
		return err
	}

	l.logger.Info("Table %s created with %d columns", name, len(defs))
	return nil
}

// validateFrame checks frame structure and that every column name can be
// spliced into SQL. insert_time is reserved.
func validateFrame(frame *etl.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	for _, c := range frame.Columns {
		if err := db.ValidateColumn(c); err != nil {
			return err
		}
		if strings.EqualFold(c, etl.InsertTimeColumn) {
			return fmt.Errorf("%w: column %q is reserved", etl.ErrInvalidInput, c)
		}
	}
	return nil
}
