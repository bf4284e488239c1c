package db_test

import (
	"strings"
	"testing"

	"github.com/atinyakov/appstate/internal/db"
)

func TestInitPostgres_UnreachableServer(t *testing.T) {
	cases := []struct {
		name string
		dsn  string
	}{
		{"key value DSN", "some=random"},
		{"empty DSN", ""},
		{"url DSN", "postgres://appstate@127.0.0.1:1/appstate?sslmode=disable&connect_timeout=1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := db.InitPostgres(tc.dsn)
			if err == nil {
				conn.Close()
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), "postgres") {
				t.Errorf("InitPostgres(%q) error = %q; want it to name postgres", tc.dsn, err.Error())
			}
		})
	}
}
