package postgresosm

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// testDBConfig holds the test database configuration
type testDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// getTestDBConfig returns the test database configuration from environment variables
func getTestDBConfig() testDBConfig {
	return testDBConfig{
		Host:     getEnv("OSM_DB_HOST", "localhost"),
		Port:     getEnv("OSM_DB_PORT", "5435"),
		User:     getEnv("OSM_DB_USER", "osmuser"),
		Password: getEnv("OSM_DB_PASSWORD", "osmpass"),
		DBName:   getEnv("OSM_DB_NAME", "osm"),
		SSLMode:  getEnv("OSM_DB_SSLMODE", "disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setupTestDB connects to PostGIS or skips the test when it is not reachable
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := getTestDBConfig()
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Skipf("PostGIS not available: %v", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("PostGIS not reachable: %v", err)
	}

	return NewDBForTest(db, zap.NewNop())
}

// teardownTestDB closes the database connection
func teardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close test database: %v", err)
	}
}

// seedReferenceTables creates a small reference snapshot in a throwaway schema
func seedReferenceTables(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		t.Skipf("PostGIS extension not available: %v", err)
	}

	schema := fmt.Sprintf("fm_test_%d", time.Now().UnixNano())
	statements := []string{
		fmt.Sprintf("CREATE SCHEMA %s", schema),
		fmt.Sprintf("CREATE TABLE %s.nodes (osm_id bigint, version int, tags jsonb, geom geometry(Point, 4326))", schema),
		fmt.Sprintf("CREATE TABLE %s.ways_poly (osm_id bigint, version int, tags jsonb, geom geometry(Geometry, 4326))", schema),
		fmt.Sprintf("CREATE TABLE %s.relations (osm_id bigint, tags jsonb, geom geometry(Geometry, 4326))", schema),
		fmt.Sprintf(`INSERT INTO %s.nodes VALUES
			(1, 3, '{"amenity":"cafe","name":"Joe"}', ST_SetSRID(ST_MakePoint(-105.0, 40.0), 4326)),
			(2, 1, '{"shop":"bakery"}', ST_SetSRID(ST_MakePoint(10.0, 10.0), 4326))`, schema),
		fmt.Sprintf(`INSERT INTO %s.ways_poly VALUES
			(100, 2, '{"building":"yes"}', ST_GeomFromText('POLYGON((-104.001 39.999,-103.999 39.999,-103.999 40.001,-104.001 40.001,-104.001 39.999))', 4326))`, schema),
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to seed reference data: %v", err)
		}
	}

	// every pooled session must resolve the unqualified table names to the test schema
	db.DB.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
		t.Fatalf("Failed to set search_path: %v", err)
	}

	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
	})
}
