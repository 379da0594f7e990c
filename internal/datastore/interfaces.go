package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/observability/metrics"
)

// DefaultRecentLimit bounds Recent when the caller passes zero.
const DefaultRecentLimit = 20

// Interface is the run history store.
type Interface interface {
	Open() error
	Save(run *Run) error
	Recent(kind string, limit int) ([]Run, error)
	Close() error
}

// DataStore implements the shared gorm operations.
type DataStore struct {
	DB      *gorm.DB
	Metrics metrics.Recorder
}

// New returns the store selected by settings, or nil when history is off.
// m may be nil.
func New(settings *conf.Settings, m metrics.Recorder) Interface {
	if !settings.History.Enabled {
		return nil
	}
	switch settings.History.Type {
	case "mysql":
		return &MySQLStore{DataStore: DataStore{Metrics: m}, Settings: settings}
	default:
		return &SQLiteStore{DataStore: DataStore{Metrics: m}, Settings: settings}
	}
}

func (ds *DataStore) recorder() metrics.Recorder {
	if ds.Metrics == nil {
		return metrics.NopRecorder{}
	}
	return ds.Metrics
}

// Save inserts run. CreatedAt defaults to now.
func (ds *DataStore) Save(run *Run) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if run.ID == "" {
		return errors.Newf("run has no id").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	start := time.Now()
	err := ds.DB.Create(run).Error
	ds.recorder().RecordDuration(metrics.OpHistorySave, time.Since(start).Seconds())
	if err != nil {
		ds.recorder().RecordError(metrics.OpHistorySave, string(errors.CategoryDatabase))
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_run").
			Context("kind", run.Kind).
			Build()
	}
	ds.recorder().RecordOperation(metrics.OpHistorySave, metrics.StatusSuccess)

	GetLogger().Debug("run saved",
		logger.String("id", run.ID),
		logger.String("kind", run.Kind),
		logger.String("status", run.Status))
	return nil
}

// Recent returns up to limit runs, newest first, optionally filtered by kind.
func (ds *DataStore) Recent(kind string, limit int) ([]Run, error) {
	if ds.DB == nil {
		return nil, errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	start := time.Now()
	query := ds.DB.Order("created_at DESC").Limit(limit)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var runs []Run
	err := query.Find(&runs).Error
	ds.recorder().RecordDuration(metrics.OpHistoryQuery, time.Since(start).Seconds())
	if err != nil {
		ds.recorder().RecordError(metrics.OpHistoryQuery, string(errors.CategoryDatabase))
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "recent_runs").
			Build()
	}
	ds.recorder().RecordOperation(metrics.OpHistoryQuery, metrics.StatusSuccess)
	return runs, nil
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

// performAutoMigration creates or updates the runs table.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&Run{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Context("operation", "auto_migrate").
			Build()
	}
	GetLogger().Debug("database migration completed",
		logger.String("db_type", dbType),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// gormLogger routes gorm output to the datastore module logger.
func gormLogger() *logger.GormLoggerAdapter {
	return logger.NewGormLoggerAdapter(GetLogger(), 200*time.Millisecond)
}
