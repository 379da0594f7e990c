package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	m := settings.History.MySQL
	if m.Host == "" || m.Database == "" || m.Username == "" {
		return errors.Newf("mysql history needs host, database and username").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// mysqlDSN builds the driver connection string.
func mysqlDSN(m conf.MySQLSettings) string {
	port := m.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, port, m.Database)
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	m := store.Settings.History.MySQL
	db, err := gorm.Open(mysql.Open(mysqlDSN(m)), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", "mysql").
			Context("operation", "open").
			Build()
	}

	store.DB = db
	return performAutoMigration(db, "MySQL")
}
