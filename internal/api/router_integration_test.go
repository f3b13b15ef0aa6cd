//go:build integration
// +build integration

package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tmarsden/scanpulse/config"
	"github.com/tmarsden/scanpulse/internal/app"
	"github.com/tmarsden/scanpulse/internal/domain/dto"
)

// startPostgres runs a disposable postgres container and returns its
// coordinates. The container is torn down when the test finishes.
func startPostgres(t *testing.T) (host string, port int) {
	t.Helper()
	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "scanpulse",
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
			},
			WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(h string, p nat.Port) string {
				return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=scanpulse sslmode=disable", h, p.Port())
			}).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	p, _ := nat.ParsePort(mp.Port())
	return h, int(p)
}

// migratedPool opens the containerized database and brings the schema
// up to date with the goose migrations shipped in db/migrations.
func migratedPool(t *testing.T, host string, port int) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%d/scanpulse?sslmode=disable", host, port)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Ping(); err != nil {
		t.Fatalf("ping pool: %v", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.Up(db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("goose up: %v", err)
	}
	return db
}

func seedAdvancers(t *testing.T, db *sql.DB, first time.Time, values ...float64) {
	t.Helper()
	for i, v := range values {
		_, err := db.Exec(
			`INSERT INTO aggregate_history (metric_date, metric_name, value) VALUES ($1, $2, $3)`,
			first.AddDate(0, 0, i), "advancers", v,
		)
		if err != nil {
			t.Fatalf("seed row %d: %v", i, err)
		}
	}
}

func TestAPI_E2E_AggregatesRange(t *testing.T) {
	host, port := startPostgres(t)
	db := migratedPool(t, host, port)

	day := time.Now().UTC().AddDate(0, 0, -3)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	seedAdvancers(t, db, day, 12, 9)

	// The app reads the global config, so aim it at the container.
	config.AppConfig.Postgres.Host = host
	config.AppConfig.Postgres.Port = port
	config.AppConfig.Postgres.User = "postgres"
	config.AppConfig.Postgres.Password = "postgres"
	config.AppConfig.Postgres.DBName = "scanpulse"
	config.AppConfig.Postgres.SSLMode = "disable"

	router, cleanup, err := app.InitializeApp()
	if err != nil {
		t.Fatalf("InitializeApp: %v", err)
	}
	t.Cleanup(cleanup)

	start := day.Format("2006-01-02")
	end := day.AddDate(0, 0, 1).Format("2006-01-02")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/aggregates?metric=advancers&start="+start+"&end="+end, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("aggregates: status=%d body=%s", w.Code, w.Body.String())
	}
	var body dto.AggregateRangeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode aggregates: %v", err)
	}
	if body.Metric != "advancers" || len(body.Points) != 2 {
		t.Fatalf("unexpected range: %+v", body)
	}
	if body.Points[0].Value != 12 || body.Points[1].Value != 9 {
		t.Fatalf("seeded values did not round-trip: %+v", body.Points)
	}

	// The storage snapshot sizes the live store, so it must be positive.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/storage", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("storage: status=%d body=%s", w.Code, w.Body.String())
	}
	var usage dto.StorageUsageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &usage); err != nil {
		t.Fatalf("decode storage: %v", err)
	}
	if usage.ScanStoreBytes <= 0 || usage.TotalBytes < usage.ScanStoreBytes {
		t.Fatalf("implausible usage snapshot: %+v", usage)
	}
}
