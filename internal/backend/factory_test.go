package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, DatabasePath: filepath.Join(t.TempDir(), "fintrack.db")}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "mongodb"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "fintrack"}, true},
	}

	f := NewFactory(log.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if res.Cleanup != nil {
				t.Cleanup(func() { _ = res.Cleanup() })
			}
			if res.Publisher != nil {
				t.Error("Publisher should be nil without AMQP")
			}

			ctx := context.Background()
			if err := res.Backend.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := res.Backend.SaveExpenses(ctx, "alice", []core.Expense{{ID: "exp_1", Title: "Tea"}}); err != nil {
				t.Fatalf("SaveExpenses: %v", err)
			}
			snap, err := res.Backend.LoadSnapshot(ctx, "alice", core.Expenses)
			if err != nil || snap.Revision != 1 {
				t.Errorf("LoadSnapshot() revision = %d err = %v, want 1", snap.Revision, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg := &config.Config{DataBackend: "sqlite", DatabasePath: "/tmp/x.db", AMQPURL: "amqp://localhost", AMQPExchange: "fintrack", AMQPQueue: "q"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend || got.DatabasePath != "/tmp/x.db" || got.AMQPQueue != "q" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unsupported backend")
	}
}
