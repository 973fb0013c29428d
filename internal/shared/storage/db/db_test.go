package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nil, driver.ErrSkip }
func (nopConn) Ping(ctx context.Context) error            { return nil }

var registerTestDriverOnce sync.Once

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
	conn, err := sql.Open("dbtest", "ignored")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return conn
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "   ", DefaultServerOptions()); err == nil {
		t.Fatal("expected error for empty database url")
	}
}

func TestApplyOptionsDefaults(t *testing.T) {
	conn := testDB(t)
	defer conn.Close()

	applyOptions(conn, Options{})

	if got := conn.Stats().MaxOpenConnections; got != 10 {
		t.Fatalf("expected default max open conns 10, got %d", got)
	}
}

func TestApplyOptionsExplicit(t *testing.T) {
	conn := testDB(t)
	defer conn.Close()

	applyOptions(conn, Options{
		MaxOpenConns:    3,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Second,
	})

	if got := conn.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("expected max open conns 3, got %d", got)
	}
}
