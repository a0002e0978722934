package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

// ResponseStatRow is one response joined with its evaluation, dimension
// and organization. The stats package groups and averages these in memory.
type ResponseStatRow struct {
	EvaluationID     int64  `db:"evaluation_id"`
	Score            int    `db:"score"`
	DimensionID      int64  `db:"dimension_id"`
	DimensionName    string `db:"dimension_name"`
	DimensionCode    string `db:"dimension_code"`
	OrganizationID   int64  `db:"organization_id"`
	OrganizationName string `db:"organization_name"`
	City             string `db:"city"`
	Region           string `db:"region"`
}

// StatFilter narrows the response rows fetched for aggregation.
type StatFilter struct {
	DimensionID    *int64
	OrganizationID *int64
	SubmittedOnly  bool
}
