// Package testutil はPostgreSQLを使う統合テスト向けの補助関数を提供する。
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hitoshi/projectboard/internal/database"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:16-alpine"

// PostgresOption はNewPostgresのオプション。
type PostgresOption func(*postgresOptions)

type postgresOptions struct {
	migrate bool
}

// WithoutMigrations はマイグレーションを適用せずに空のデータベースを返す。
func WithoutMigrations() PostgresOption {
	return func(o *postgresOptions) {
		o.migrate = false
	}
}

// NewPostgres はテスト用のPostgreSQLコンテナを起動し、接続とDSNを返す。
// -short指定時、またはDockerが利用できない環境ではテストをスキップする。
// コンテナと接続はテスト終了時に破棄される。
func NewPostgres(t *testing.T, opts ...PostgresOption) (*sql.DB, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	o := postgresOptions{migrate: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase("projectboard_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if o.migrate {
		if err := database.RunMigrations(dsn); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	return db, dsn
}

// Truncate はプロジェクト関連のテーブルを空にする。テスト間の分離に使う。
func Truncate(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec(`TRUNCATE project_milestones, project_users, projects, sessions, users CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
