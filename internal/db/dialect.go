package db

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// ColumnKind is the storage class inferred for a frame column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindFloat
	KindDateTime
	KindBool
)

// String returns a lowercase name for the kind.
func (k ColumnKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDateTime:
		return "datetime"
	case KindBool:
		return "bool"
	default:
		return "text"
	}
}

// Dialect supplies the backend-specific SQL fragments the loader needs.
type Dialect interface {
	Name() etl.Dialect

	// DriverName is the database/sql driver registered for the dialect.
	DriverName() string

	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string

	// ExistsQuery returns a query taking the table name as its only
	// parameter and yielding a single 1 or 0.
	ExistsQuery() string

	// ColumnType maps an inferred kind to a column type.
	ColumnType(k ColumnKind) string

	// DefaultPort is used when the secret carries no port.
	DefaultPort() int

	// DSN builds the driver connection string. The password is omitted
	// when withPassword is false (token based auth).
	DSN(creds etl.Credentials, database string, withPassword bool) string
}

// DialectFor returns the Dialect implementation for name.
func DialectFor(name etl.Dialect) (Dialect, error) {
	switch name {
	case etl.DialectMSSQL:
		return MSSQL{}, nil
	case etl.DialectPostgres:
		return Postgres{}, nil
	case etl.DialectSQLite:
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("%w: unknown dialect %q", etl.ErrInvalidConfig, name)
}

// MSSQL targets SQL Server and Azure SQL through go-mssqldb.
type MSSQL struct{}

func (MSSQL) Name() etl.Dialect        { return etl.DialectMSSQL }
func (MSSQL) DriverName() string       { return "sqlserver" }
func (MSSQL) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }
func (MSSQL) DefaultPort() int         { return 1433 }

func (MSSQL) ExistsQuery() string {
	return "IF OBJECT_ID(@p1, 'U') IS NOT NULL SELECT 1 ELSE SELECT 0;"
}

func (MSSQL) ColumnType(k ColumnKind) string {
	switch k {
	case KindInteger:
		return "BIGINT"
	case KindFloat:
		return "FLOAT"
	case KindDateTime:
		return "DATETIME"
	case KindBool:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (d MSSQL) DSN(creds etl.Credentials, database string, withPassword bool) string {
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   hostPort(creds, d.DefaultPort()),
	}
	if withPassword {
		u.User = url.UserPassword(creds.Username, creds.Password)
	}
	q := url.Values{}
	if database != "" {
		q.Set("database", database)
	}
	q.Set("app name", "etldrivers")
	u.RawQuery = q.Encode()
	return u.String()
}

// Postgres targets PostgreSQL through the pgx stdlib driver.
type Postgres struct{}

func (Postgres) Name() etl.Dialect        { return etl.DialectPostgres }
func (Postgres) DriverName() string       { return "pgx" }
func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (Postgres) DefaultPort() int         { return 5432 }

func (Postgres) ExistsQuery() string {
	return "SELECT CASE WHEN to_regclass($1) IS NOT NULL THEN 1 ELSE 0 END;"
}

func (Postgres) ColumnType(k ColumnKind) string {
	switch k {
	case KindInteger:
		return "BIGINT"
	case KindFloat:
		return "DOUBLE PRECISION"
	case KindDateTime:
		return "TIMESTAMP"
	case KindBool:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func (d Postgres) DSN(creds etl.Credentials, database string, withPassword bool) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   hostPort(creds, d.DefaultPort()),
		Path:   "/" + database,
	}
	if withPassword {
		u.User = url.UserPassword(creds.Username, creds.Password)
	} else {
		u.User = url.User(creds.Username)
	}
	q := url.Values{}
	q.Set("application_name", "etldrivers")
	u.RawQuery = q.Encode()
	return u.String()
}

// SQLite targets a local database file through modernc.org/sqlite.
// The database name is the file path; server credentials are ignored.
type SQLite struct{}

func (SQLite) Name() etl.Dialect      { return etl.DialectSQLite }
func (SQLite) DriverName() string     { return "sqlite" }
func (SQLite) Placeholder(int) string { return "?" }
func (SQLite) DefaultPort() int       { return 0 }

func (SQLite) ExistsQuery() string {
	return "SELECT CASE WHEN EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?) THEN 1 ELSE 0 END;"
}

func (SQLite) ColumnType(k ColumnKind) string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindDateTime:
		return "DATETIME"
	case KindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (SQLite) DSN(_ etl.Credentials, database string, _ bool) string {
	return database
}

// protocolPrefixes are the SQL Server network library prefixes that may
// precede a host name ("tcp:myserver.database.windows.net").
var protocolPrefixes = []string{"tcp:", "np:", "lpc:", "admin:"}

// StripProtocol removes a URL scheme or network library prefix from a
// server host name.
func StripProtocol(server string) string {
	server = strings.TrimSpace(server)
	if i := strings.Index(server, "://"); i >= 0 {
		server = server[i+3:]
	}
	lower := strings.ToLower(server)
	for _, p := range protocolPrefixes {
		if strings.HasPrefix(lower, p) {
			return server[len(p):]
		}
	}
	return server
}

func hostPort(creds etl.Credentials, defaultPort int) string {
	port := creds.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(StripProtocol(creds.Server), strconv.Itoa(port))
}
