// Package loader merges assembled weather tables into the destination
// relational table.
package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/forecast"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

const moduleName = "loader"

// insertBatchSize caps the number of rows bound into one INSERT.
const insertBatchSize = 500

// Strategy selects how rows reach the destination table.
type Strategy string

const (
	// StrategyMerge writes the batch into a staging table and runs a MERGE
	// statement. Postgres only.
	StrategyMerge Strategy = "merge"
	// StrategyOnConflict inserts directly with a conflict clause. On MySQL
	// GORM renders this as INSERT ... ON DUPLICATE KEY UPDATE.
	StrategyOnConflict Strategy = "onconflict"
)

// Loader owns the destination connection and the merge behavior.
type Loader struct {
	db         *gorm.DB
	dialect    string
	table      string
	schema     string
	keyColumns []string
	strategy   Strategy
}

// Open connects to the destination described by the database configuration.
func Open(cfg config.DatabaseConfig) (*Loader, error) {
	if cfg.URI == "" {
		return nil, exception.Configuration(moduleName, "POSTGRES_URI is not set", nil)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "", "postgres":
		dialector = postgres.Open(cfg.URI)
	case "mysql":
		dialector = mysql.Open(cfg.URI)
	case "sqlite":
		dialector = sqlite.Open(cfg.URI)
	default:
		return nil, exception.Newf(exception.KindConfiguration, moduleName, "unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(),
	})
	if err != nil {
		return nil, exception.Upsert(moduleName, "failed to open database connection", err)
	}
	return New(db, cfg)
}

// New builds a Loader over an existing GORM handle. Used directly by tests.
func New(db *gorm.DB, cfg config.DatabaseConfig) (*Loader, error) {
	dialect := cfg.Type
	if dialect == "" {
		dialect = "postgres"
	}

	schema := cfg.Schema
	if dialect == "sqlite" {
		schema = ""
	}

	strategy, err := resolveStrategy(cfg.MergeStrategy, dialect)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		db:         db,
		dialect:    dialect,
		table:      cfg.Table,
		schema:     schema,
		keyColumns: cfg.KeyColumns,
		strategy:   strategy,
	}
	if err := l.validateIdentifiers(); err != nil {
		return nil, err
	}
	return l, nil
}

func resolveStrategy(name, dialect string) (Strategy, error) {
	switch Strategy(name) {
	case "":
		if dialect == "postgres" {
			return StrategyMerge, nil
		}
		return StrategyOnConflict, nil
	case StrategyMerge:
		if dialect != "postgres" {
			return "", exception.Newf(exception.KindConfiguration, moduleName, "merge strategy %q is not supported on dialect %q", name, dialect)
		}
		return StrategyMerge, nil
	case StrategyOnConflict:
		return StrategyOnConflict, nil
	default:
		return "", exception.Newf(exception.KindConfiguration, moduleName, "unknown merge strategy %q", name)
	}
}

func (l *Loader) validateIdentifiers() error {
	if l.table == "" {
		return exception.Configuration(moduleName, "destination table is not configured", nil)
	}
	if err := validIdentifier(l.table); err != nil {
		return err
	}
	if l.schema != "" {
		if err := validIdentifier(l.schema); err != nil {
			return err
		}
	}
	if len(l.keyColumns) == 0 {
		return exception.Configuration(moduleName, "at least one key column is required", nil)
	}
	canonical := make(map[string]bool, len(forecast.Columns))
	for _, col := range forecast.Columns {
		canonical[col] = true
	}
	for _, col := range l.keyColumns {
		if err := validIdentifier(col); err != nil {
			return err
		}
		if !canonical[col] {
			return exception.Newf(exception.KindConfiguration, moduleName, "key column %q is not a canonical column", col)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (l *Loader) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	logger.Infof("Closing database connection for %s.", l.destination())
	return sqlDB.Close()
}

func (l *Loader) destination() string {
	if l.schema == "" {
		return l.table
	}
	return l.schema + "." + l.table
}

// Upsert merges the table's rows into the destination: rows matching an
// existing (key columns) tuple update the non-key columns, the rest insert.
// The whole sequence runs in one transaction and either fully applies or
// fully rolls back.
func (l *Loader) Upsert(ctx context.Context, table *forecast.Table) error {
	if table.Len() == 0 {
		logger.Infof("Upsert skipped: table is empty.")
		return nil
	}

	switch l.strategy {
	case StrategyMerge:
		return l.upsertViaStaging(ctx, table)
	default:
		return l.upsertOnConflict(ctx, table)
	}
}

// upsertViaStaging implements the staging-table path: replace the staging
// copy, coerce its column types to the destination's declared types, MERGE,
// drop the staging copy.
//
// The staging name is deterministic per destination, so two concurrent runs
// against the same table race. Sequential reuse only.
func (l *Loader) upsertViaStaging(ctx context.Context, table *forecast.Table) error {
	staging := "temp_" + l.table
	destQualified := qualify(l.dialect, l.schema, l.table)
	stagingQualified := qualify(l.dialect, l.schema, staging)

	tx := l.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return exception.Upsert(moduleName, "failed to begin transaction", tx.Error)
	}
	defer tx.Rollback()

	columnTypes, err := l.destinationColumnTypes(tx)
	if err != nil {
		return err
	}

	if err := tx.Exec("DROP TABLE IF EXISTS " + stagingQualified).Error; err != nil {
		return exception.Upsert(moduleName, "failed to drop previous staging table "+staging, err)
	}
	if err := tx.Exec(buildCreateStaging(l.dialect, stagingQualified, forecast.Columns, columnTypes)).Error; err != nil {
		return exception.Upsert(moduleName, "failed to create staging table "+staging, err)
	}

	stagingTable := staging
	if l.schema != "" {
		stagingTable = l.schema + "." + staging
	}
	records := table.Records()
	if err := tx.Table(stagingTable).CreateInBatches(records, insertBatchSize).Error; err != nil {
		return exception.Upsert(moduleName, "failed to populate staging table "+staging, err)
	}

	merge := buildMerge(l.dialect, destQualified, stagingQualified, forecast.Columns, l.keyColumns)
	if err := tx.Exec(merge).Error; err != nil {
		return exception.Upsert(moduleName, "merge into "+l.destination()+" failed", err)
	}

	if err := tx.Exec("DROP TABLE " + stagingQualified).Error; err != nil {
		return exception.Upsert(moduleName, "failed to drop staging table "+staging, err)
	}
	if err := tx.Commit().Error; err != nil {
		return exception.Upsert(moduleName, "failed to commit merge into "+l.destination(), err)
	}

	logger.Infof("Merged %d rows into %s via staging table.", table.Len(), l.destination())
	return nil
}

// upsertOnConflict implements the direct path using GORM's conflict clause.
func (l *Loader) upsertOnConflict(ctx context.Context, table *forecast.Table) error {
	keys := make(map[string]bool, len(l.keyColumns))
	var conflictCols []clause.Column
	for _, col := range l.keyColumns {
		keys[col] = true
		conflictCols = append(conflictCols, clause.Column{Name: col})
	}
	var updateCols []string
	for _, col := range forecast.Columns {
		if !keys[col] {
			updateCols = append(updateCols, col)
		}
	}

	dest := l.table
	if l.schema != "" {
		dest = l.schema + "." + l.table
	}

	tx := l.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return exception.Upsert(moduleName, "failed to begin transaction", tx.Error)
	}
	defer tx.Rollback()

	onConflict := clause.OnConflict{
		Columns:   conflictCols,
		DoUpdates: clause.AssignmentColumns(updateCols),
	}
	records := table.Records()
	if err := tx.Table(dest).Clauses(onConflict).CreateInBatches(records, insertBatchSize).Error; err != nil {
		return exception.Upsert(moduleName, "upsert into "+l.destination()+" failed", err)
	}
	if err := tx.Commit().Error; err != nil {
		return exception.Upsert(moduleName, "failed to commit upsert into "+l.destination(), err)
	}

	logger.Infof("Upserted %d rows into %s.", table.Len(), l.destination())
	return nil
}

// destinationColumnTypes reads the destination's declared column types. The
// destination table must already exist; creating it is out of scope.
func (l *Loader) destinationColumnTypes(tx *gorm.DB) (map[string]string, error) {
	type columnInfo struct {
		ColumnName string
		DataType   string
	}
	var cols []columnInfo
	err := tx.Raw(
		"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position",
		l.schema, l.table,
	).Scan(&cols).Error
	if err != nil {
		return nil, exception.Upsert(moduleName, "failed to read destination column types for "+l.destination(), err)
	}
	if len(cols) == 0 {
		return nil, exception.Upsert(moduleName, "destination table "+l.destination()+" does not exist", nil)
	}

	types := make(map[string]string, len(cols))
	for _, col := range cols {
		types[col.ColumnName] = col.DataType
	}
	var missing []string
	for _, col := range forecast.Columns {
		if _, ok := types[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, exception.Newf(exception.KindUpsert, moduleName, "destination table %s is missing columns: %s", l.destination(), strings.Join(missing, ", "))
	}
	return types, nil
}

// newGormLogger redirects GORM's log output through the application logger.
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct{}

func (gormWriter) Printf(format string, v ...interface{}) {
	logger.Debugf("[GORM] %s", strings.TrimSpace(fmt.Sprintf(format, v...)))
}
