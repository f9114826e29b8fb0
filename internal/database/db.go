package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig is shared by every dialect so that unique violations surface
// as gorm.ErrDuplicatedKey and timestamps are written in UTC.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         NewGormLogger(os.Stdout),
	}
}

// NewGormLogger logs slow queries and real errors to w. Lookups that find
// nothing are expected (FindLive, FindByUserProgram) and stay quiet.
func NewGormLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "[gorm] ", log.LstdFlags), logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// OpenGorm wraps an already pooled *sql.DB so the pool settings from Open
// stay in effect.
func OpenGorm(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), GormConfig())
}

// Migrate creates or updates every table and index owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.AllModels()...)
}

// Connect opens the pooled MySQL connection described by c and wraps it
// in gorm.
func Connect(c config.DBConfig) (*gorm.DB, error) {
	sqlDB, err := Open(c.User, c.Pass, c.Host, c.Port, c.Name)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db, err := OpenGorm(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}
