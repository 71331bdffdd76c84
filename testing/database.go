// Package testing provides test utilities and database setup for testing the ad decision service
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/amirphl/fast-ads/migrations"
	"github.com/amirphl/fast-ads/models"
	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Test database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// GetTestDBConfig loads test database configuration from environment variables.
// TEST_DB_DRIVER=postgres runs the suite against a throwaway PostgreSQL database.
func GetTestDBConfig() *TestDBConfig {
	config := &TestDBConfig{
		Driver:   getEnv("TEST_DB_DRIVER", DriverSQLite),
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
	}
	return config
}

// TestDB represents a test database instance
type TestDB struct {
	DB     *gorm.DB
	Name   string
	config *TestDBConfig
}

// AllModels lists every table of the schema in dependency order
func AllModels() []any {
	return []any{
		&models.Tenant{},
		&models.Channel{},
		&models.AdBreak{},
		&models.Campaign{},
		&models.Ad{},
		&models.AdRule{},
		&models.AdPodConfig{},
		&models.AdVariant{},
		&models.AbTestAssignment{},
		&models.FrequencyCap{},
		&models.TrackingEvent{},
		&models.AdDecisionLog{},
		&models.AdReport{},
	}
}

// SetupTestDB creates a new test database with a unique name and builds the schema
func SetupTestDB() (*TestDB, error) {
	config := GetTestDBConfig()

	// Generate unique database name using timestamp and random number
	dbName := fmt.Sprintf("fast_ads_test_%d_%d", time.Now().UnixNano(), rand.Intn(10000))

	if config.Driver == DriverPostgres {
		return setupPostgres(config, dbName)
	}
	return setupSQLite(config, dbName)
}

// setupSQLite opens a named shared in-memory database. A single connection keeps
// every statement on the same database and serializes writers.
func setupSQLite(config *TestDBConfig, dbName string) (*TestDB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", dbName)
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite test database %s: %w", dbName, err)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := testDB.AutoMigrate(AllModels()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite test database %s: %w", dbName, err)
	}

	return &TestDB{DB: testDB, Name: dbName, config: config}, nil
}

func setupPostgres(config *TestDBConfig, dbName string) (*TestDB, error) {
	// Connect to PostgreSQL server (without specific database)
	adminDB, err := gorm.Open(postgres.Open(config.adminDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)).Error
	if sqlDB, dbErr := adminDB.DB(); dbErr == nil {
		sqlDB.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", dbName, err)
	}

	testDSN := config.adminDSN() + " dbname=" + dbName
	if err := runTestMigrations(testDSN); err != nil {
		tdb := &TestDB{Name: dbName, config: config}
		_ = tdb.dropDatabase()
		return nil, fmt.Errorf("failed to run migrations on test database %s: %w", dbName, err)
	}

	testDB, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database %s: %w", dbName, err)
	}

	return &TestDB{DB: testDB, Name: dbName, config: config}, nil
}

// TeardownTestDB drops the test database and closes connections
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	sqlDB, err := tdb.DB.DB()
	if err == nil {
		sqlDB.Close()
	}

	if tdb.config.Driver != DriverPostgres {
		// the in-memory database goes away with its last connection
		return nil
	}
	return tdb.dropDatabase()
}

func (tdb *TestDB) dropDatabase() error {
	adminDB, err := gorm.Open(postgres.Open(tdb.config.adminDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL for cleanup: %v", err)
		return err
	}
	defer func() {
		sqlDB, _ := adminDB.DB()
		sqlDB.Close()
	}()

	// Force disconnect all connections to the test database
	err = adminDB.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = ? AND pid <> pg_backend_pid()",
		tdb.Name).Error
	if err != nil {
		log.Printf("Warning: failed to terminate connections to test database %s: %v", tdb.Name, err)
	}

	err = adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", tdb.Name)).Error
	if err != nil {
		log.Printf("Warning: failed to drop test database %s: %v", tdb.Name, err)
		return err
	}

	return nil
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	all := AllModels()
	// children first
	for i := len(all) - 1; i >= 0; i-- {
		stmt := &gorm.Statement{DB: tdb.DB}
		if err := stmt.Parse(all[i]); err != nil {
			return fmt.Errorf("failed to parse model %T: %w", all[i], err)
		}
		table := stmt.Schema.Table

		query := fmt.Sprintf("DELETE FROM %s", table)
		if tdb.config.Driver == DriverPostgres {
			query = fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
		}
		if err := tdb.DB.Exec(query).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	return nil
}

// runTestMigrations applies the embedded goose migrations
func runTestMigrations(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return migrations.Up(db)
}

func (c *TestDBConfig) adminDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
