package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jlaffaye/ftp"
)

var (
	ErrUnsupportedURL   = errors.New("unsupported jdbc url")
	ErrConnectionFailed = errors.New("connection test failed")
)

const defaultValidateTimeout = 10 * time.Second

type TableColumn struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	PK       bool   `json:"pk"`
}

type Table struct {
	Schema  string        `json:"schema"`
	Name    string        `json:"name"`
	Columns []TableColumn `json:"columns"`
}

// Validator runs the "test connection" checks behind the connector forms.
type Validator struct {
	timeout time.Duration
}

func NewValidator(timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = defaultValidateTimeout
	}
	return &Validator{timeout: timeout}
}

// ValidateFtp logs in to the server and checks each folder can be entered.
func (v *Validator) ValidateFtp(ctx context.Context, info FtpInfo, folders ...string) error {
	if err := info.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	conn, err := ftp.Dial(info.Addr(), ftp.DialWithContext(ctx), ftp.DialWithTimeout(v.timeout))
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnectionFailed, info.Addr(), err)
	}
	defer conn.Quit()

	if err := conn.Login(info.User, info.Password); err != nil {
		return fmt.Errorf("%w: login as %q: %v", ErrConnectionFailed, info.User, err)
	}
	for _, folder := range folders {
		if err := conn.ChangeDir(folder); err != nil {
			return fmt.Errorf("%w: folder %q: %v", ErrConnectionFailed, folder, err)
		}
	}
	return nil
}

func (v *Validator) ValidateRdb(ctx context.Context, info RdbInfo) error {
	conn, err := v.connect(ctx, info)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

const tablesQuery = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type,
       EXISTS (
         SELECT 1
         FROM information_schema.table_constraints tc
         JOIN information_schema.key_column_usage k
           ON tc.constraint_name = k.constraint_name
          AND tc.table_schema = k.table_schema
         WHERE tc.constraint_type = 'PRIMARY KEY'
           AND k.table_schema = c.table_schema
           AND k.table_name = c.table_name
           AND k.column_name = c.column_name
       ) AS pk
FROM information_schema.columns c
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

// QueryTables lists user tables with their columns.
func (v *Validator) QueryTables(ctx context.Context, info RdbInfo) ([]Table, error) {
	conn, err := v.connect(ctx, info)
	if err != nil {
		return nil, err
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var schema, table string
		var col TableColumn
		if err := rows.Scan(&schema, &table, &col.Name, &col.DataType, &col.PK); err != nil {
			return nil, fmt.Errorf("scan table column: %w", err)
		}
		last := len(tables) - 1
		if last < 0 || tables[last].Schema != schema || tables[last].Name != table {
			tables = append(tables, Table{Schema: schema, Name: table})
			last++
		}
		tables[last].Columns = append(tables[last].Columns, col)
	}
	return tables, rows.Err()
}

func (v *Validator) connect(ctx context.Context, info RdbInfo) (*pgx.Conn, error) {
	connString, err := PostgresConnString(info.URL)
	if err != nil {
		return nil, err
	}
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if info.User != "" {
		cfg.User = info.User
	}
	if info.Password != "" {
		cfg.Password = info.Password
	}
	cfg.ConnectTimeout = v.timeout

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return conn, nil
}

// PostgresConnString maps a jdbc:postgresql:// url onto a libpq style url.
func PostgresConnString(jdbcURL string) (string, error) {
	raw, ok := strings.CutPrefix(jdbcURL, "jdbc:")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, jdbcURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "postgresql" && u.Scheme != "postgres" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	u.Scheme = "postgres"
	q := u.Query()
	// jdbc spells credentials as query parameters
	if user := q.Get("user"); user != "" {
		u.User = url.UserPassword(user, q.Get("password"))
		q.Del("user")
		q.Del("password")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
