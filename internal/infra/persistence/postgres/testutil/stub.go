// Package testutil provides an in-process database/sql driver that answers
// the statements the postgres key-value store issues, so the store can be
// tested without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
)

var stubSeq atomic.Int64

// StubConn keeps the state table as a map from bucket to payload. The Fail
// toggles make the matching driver calls return an error.
type StubConn struct {
	Execs []string
	Rows  map[string][]byte

	FailPing  bool
	FailExec  bool
	FailQuery bool
}

// NewStubDB registers a fresh driver and returns a sql.DB bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][]byte)}
	name := fmt.Sprintf("atlas-stubpg-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements are not supported")
}

func (c *StubConn) Close() error { return nil }

func (c *StubConn) Begin() (driver.Tx, error) {
	return nil, errors.New("stub: transactions are not supported")
}

func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

func normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func arg(args []driver.NamedValue, i int) (any, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("stub: missing argument $%d", i+1)
	}
	return args[i].Value, nil
}

// ExecContext handles the DDL, the upsert and both deletes.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("stub: exec failed")
	}
	q := normalize(query)
	switch {
	case strings.HasPrefix(q, "create table"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(q, "insert into state"):
		key, err := arg(args, 0)
		if err != nil {
			return nil, err
		}
		payload, err := arg(args, 1)
		if err != nil {
			return nil, err
		}
		c.Rows[fmt.Sprint(key)] = toBytes(payload)
		return driver.RowsAffected(1), nil
	case q == "delete from state":
		n := len(c.Rows)
		clear(c.Rows)
		return driver.RowsAffected(n), nil
	case strings.HasPrefix(q, "delete from state where"):
		key, err := arg(args, 0)
		if err != nil {
			return nil, err
		}
		if _, ok := c.Rows[fmt.Sprint(key)]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.Rows, fmt.Sprint(key))
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("stub: unsupported statement %q", query)
}

// QueryContext handles the payload lookup and the key listing.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.FailQuery {
		return nil, errors.New("stub: query failed")
	}
	q := normalize(query)
	switch {
	case strings.HasPrefix(q, "select payload from state where"):
		key, err := arg(args, 0)
		if err != nil {
			return nil, err
		}
		rows := &stubRows{cols: []string{"payload"}}
		if v, ok := c.Rows[fmt.Sprint(key)]; ok {
			rows.values = append(rows.values, []driver.Value{v})
		}
		return rows, nil
	case strings.HasPrefix(q, "select bucket from state"):
		keys := make([]string, 0, len(c.Rows))
		for k := range c.Rows {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := &stubRows{cols: []string{"bucket"}}
		for _, k := range keys {
			rows.values = append(rows.values, []driver.Value{k})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("stub: unsupported query %q", query)
}

func toBytes(v any) []byte {
	switch t := v.(type) {
	case []byte:
		return append([]byte(nil), t...)
	case string:
		return []byte(t)
	default:
		return []byte(fmt.Sprint(t))
	}
}

type stubRows struct {
	cols   []string
	values [][]driver.Value
	next   int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}
