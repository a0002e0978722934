package app

import (
	"strings"

	"github.com/larkvi/esgrade/internal/store"
	"github.com/larkvi/esgrade/internal/store/postgres"
	"github.com/larkvi/esgrade/internal/store/sqlite"
)

func NewStore(dsn string) (store.EvaluationStore, error) {
	if strings.HasPrefix(dsn, "postgres") {
		return postgres.NewPostgresStore(dsn)
	}
	return sqlite.NewSQLiteStore(dsn)
}
