package db

import (
	"log/slog"
	"newsboard/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DefaultDSN is used for local dev when DATABASE_URL is not set.
const DefaultDSN = "host=localhost user=postgres password=postgres dbname=newsboard port=5432 sslmode=disable"

// Open 连接 Postgres
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = DefaultDSN
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// 唯一索引冲突转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Database connection established")
	return conn, nil
}

// Migrate creates the node and account tables.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.Node{},
		&models.Account{},
	)
	if err != nil {
		return err
	}

	// postId / authorId 查询走表达式索引
	for _, field := range []string{"postId", "authorId", "username"} {
		stmt := `CREATE INDEX IF NOT EXISTS idx_nodes_` + field + ` ON nodes (collection, (value ->> '` + field + `'))`
		if err := conn.Exec(stmt).Error; err != nil {
			return err
		}
	}

	slog.Info("Database migration completed")
	return nil
}
