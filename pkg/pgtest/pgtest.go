// Package pgtest constructs short-lived PostgreSQL instances for unit-testing.
package pgtest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Docker is a test configuration with PostgreSQL running in a Docker container,
// and a local client authenticated and attached to the DB.
type Docker struct {
	Resource *dockertest.Resource
	DB       *sqlx.DB
	URL      string
}

// NewDocker creates and starts a Docker test configuration.
// It skips the test if Docker is unreachable and terminates it if creation fails.
func NewDocker(t testing.TB) *Docker {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skip("pgtest: Docker unavailable:", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skip("pgtest: Docker unavailable:", err)
	}
	t.Log("Connected to Docker")
	pool.MaxWait = 2 * time.Minute
	var passBytes [16]byte
	_, err = rand.Read(passBytes[:])
	require.NoError(t, err, "Getting random password bytes")
	password := hex.EncodeToString(passBytes[:])
	runOpts := &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "13-alpine",
		Env: []string{
			"POSTGRES_DB=yametee",
			"POSTGRES_USER=yametee",
			"POSTGRES_PASSWORD=" + password,
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Creating PostgreSQL")
	t.Log("Created PostgreSQL Docker container")
	url := fmt.Sprintf("postgres://yametee:%s@localhost:%s/yametee?sslmode=disable",
		password, resource.GetPort("5432/tcp"))
	db, err := sqlx.Open("postgres", url)
	require.NoError(t, err)
	require.NoError(t, pool.Retry(func() error {
		if err := db.Ping(); err != nil {
			t.Log("Ping failed, retrying:", err)
			return err
		}
		return nil
	}), "Connection to PostgreSQL")
	return &Docker{
		Resource: resource,
		DB:       db,
		URL:      url,
	}
}

// Close force removes the PostgreSQL container and destroys all data.
func (d *Docker) Close(t testing.TB) {
	_ = d.DB.Close()
	assert.NoError(t, d.Resource.Close(), "Removing container")
}

// OrderSchema creates the subset of the storefront order table used by the worker.
const OrderSchema = `
CREATE TABLE "Order" (
	"id"            TEXT PRIMARY KEY,
	"orderNumber"   TEXT NOT NULL UNIQUE,
	"status"        TEXT NOT NULL DEFAULT 'PENDING',
	"paymentStatus" TEXT NOT NULL DEFAULT 'UNPAID',
	"createdAt"     TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
