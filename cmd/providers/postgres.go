package providers

import (
	"context"
	"errors"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/orders"
)

// PostgreSQL config keys.
const (
	ConfDatabaseURL = "database.url"
)

func init() {
	viper.SetDefault(ConfDatabaseURL, "")
}

// ErrNoDatabaseURL is returned if the required database URL is not configured.
var ErrNoDatabaseURL = errors.New("missing " + ConfDatabaseURL + " (DATABASE_URL)")

// NewPostgres opens the primary database from the configured URL.
// Connectivity is checked by the commands using it.
func NewPostgres(log *zap.Logger, lc fx.Lifecycle) (*sqlx.DB, error) {
	dsn := viper.GetString(ConfDatabaseURL)
	if dsn == "" {
		return nil, ErrNoDatabaseURL
	}
	if u, err := url.Parse(dsn); err == nil {
		log.Info("Using PostgreSQL DB",
			zap.String("postgres.addr", u.Host),
			zap.String("postgres.db_name", u.Path),
			zap.String("postgres.user", u.User.Username()))
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing PostgreSQL client")
			if err := db.Close(); err != nil {
				log.Error("Failed to close PostgreSQL client", zap.Error(err))
			}
			return nil
		},
	})
	return db, nil
}

// NewOrderStore reads orders from the primary database.
func NewOrderStore(db *sqlx.DB) *orders.Store {
	return &orders.Store{DB: db}
}
