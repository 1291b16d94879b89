package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

const upsert = "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"

func TestStubUpsertReplacesPayload(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	for _, v := range []string{`"one"`, `"two"`} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "@atlas_profile"}, {Value: []byte(v)}}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "@atlas_products"}, {Value: "[]"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(conn.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", conn.Rows)
	}

	rows, err := conn.QueryContext(ctx, "SELECT payload FROM state WHERE bucket = $1", []driver.NamedValue{{Value: "@atlas_profile"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := string(dest[0].([]byte)); got != `"two"` {
		t.Fatalf("payload = %s", got)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected one row, got %v", err)
	}
}

func TestStubKeysAndDeletes(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.Rows["b"] = []byte("1")
	conn.Rows["a"] = []byte("2")

	rows, err := conn.QueryContext(ctx, "SELECT bucket FROM state ORDER BY bucket", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	dest := make([]driver.Value, 1)
	var keys []string
	for rows.Next(dest) == nil {
		keys = append(keys, dest[0].(string))
	}
	if len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("keys = %v", keys)
	}

	res, err := conn.ExecContext(ctx, "DELETE FROM state WHERE bucket = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("rows affected = %d", n)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM state", nil); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(conn.Rows) != 0 {
		t.Fatalf("expected empty table, got %v", conn.Rows)
	}
}

func TestStubFailureToggles(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailPing = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatal("expected ping failure")
	}
	conn.FailQuery = true
	if _, err := conn.QueryContext(ctx, "SELECT bucket FROM state", nil); err == nil {
		t.Fatal("expected query failure")
	}
	if _, err := conn.ExecContext(ctx, "VACUUM", nil); err == nil {
		t.Fatal("expected unsupported statement error")
	}
	conn.FailExec = true
	if _, err := conn.ExecContext(ctx, "DELETE FROM state", nil); err == nil {
		t.Fatal("expected exec failure")
	}
}
