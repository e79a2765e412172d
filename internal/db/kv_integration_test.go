package db

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestPostgresKVContract(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	if err := ApplyMigrations(ctx, pool); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	kv := NewPostgresKV(pool)
	defer kv.Close()

	kvContract(t, kv)
}

func TestRedisKVContract(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kv, err := NewRedisKV(ctx, redisURL)
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	defer kv.Close()

	kvContract(t, kv)
}
