package database

import (
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/Amund211/haloclient/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func skipWithoutDatabase(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("HALO_RUN_DB_TESTS") == "" {
		t.Skip("skipping db tests, set HALO_RUN_DB_TESTS to run them against a local postgres")
	}
}

func TestDB(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		require.Equal(t, "haloclient", DB_NAME)
		require.Equal(t, MAIN_SCHEMA, GetSchemaName(false))
		require.Equal(t, TESTING_SCHEMA, GetSchemaName(true))
	})

	t.Run("database url is required outside development", func(t *testing.T) {
		t.Setenv("HALO_ENVIRONMENT", "production")
		t.Setenv("HALO_API_BASE_URL", "https://halo.example.com")
		t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")
		t.Setenv("HALO_DATABASE_URL", "")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		_, err = NewPostgresDatabaseFromConfig(conf)
		require.ErrorIs(t, err, config.ErrMissingRequiredValue)
	})

	t.Run("NewPostgresDatabase", func(t *testing.T) {
		skipWithoutDatabase(t)

		db, err := NewPostgresDatabase(LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		require.NotNil(t, db)
	})

	t.Run("createDatabaseIfNotExists", func(t *testing.T) {
		skipWithoutDatabase(t)

		db, err := sqlx.Connect("postgres", LOCAL_CONNECTION_STRING)
		require.NoError(t, err)

		t.Run("already existing", func(t *testing.T) {
			err := createDatabaseIfNotExists(db, "postgres")
			require.NoError(t, err)

			err = createDatabaseIfNotExists(db, DB_NAME)
			require.NoError(t, err)
		})

		t.Run("new database", func(t *testing.T) {
			const characters = "abcdefghijklmnopqrstuvwxyz"
			bytes := make([]byte, 10)
			for i := range bytes {
				bytes[i] = characters[rand.Intn(len(characters))]
			}

			dbName := fmt.Sprintf("zz_random_db_%s", string(bytes))
			err := createDatabaseIfNotExists(db, dbName)
			require.NoError(t, err)

			db.MustExec(fmt.Sprintf("DROP DATABASE %s", dbName))
		})
	})
}
