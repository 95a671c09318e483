package migrations

import (
	"context"
	"database/sql"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// Migrate применяет схему БД, все операторы идемпотентны (IF NOT EXISTS)
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

// Schema возвращает текст схемы
func Schema() string {
	return schemaSQL
}
