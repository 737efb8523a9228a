package postgres

import "testing"

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			"explicit dsn wins",
			ClientConfig{DSN: "postgres://u:p@h:5/db", Host: "ignored"},
			"postgres://u:p@h:5/db",
		},
		{
			"built from fields",
			ClientConfig{Host: "localhost", Port: 5432, Database: "wagerd", User: "app", Password: "pw", SSLMode: "require"},
			"postgres://app:pw@localhost:5432/wagerd?sslmode=require",
		},
		{
			"defaults for port and sslmode",
			ClientConfig{Host: "db", Database: "wagerd", User: "app", Password: "pw"},
			"postgres://app:pw@db:5432/wagerd?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
