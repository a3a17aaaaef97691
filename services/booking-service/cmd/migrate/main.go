package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/md-rashed-zaman/massagebook/libs/config"
	"github.com/md-rashed-zaman/massagebook/libs/runtime"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/migrations"
)

// Usage: migrate [up|down|force <version>]. Defaults to up.
func main() {
	_ = config.LoadDotEnv()
	logger := runtime.NewLoggerWithLevel("booking-migrate", config.String("LOG_LEVEL", "info"), os.Stdout)
	fail := func(msg string, err error) {
		logger.Error(msg, "err", err)
		os.Exit(1)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		fail("config", err)
	}
	sqlDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		fail("open db", err)
	}
	defer func() { _ = sqlDB.Close() }()
	if err := sqlDB.Ping(); err != nil {
		fail("ping db", err)
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		fail("db driver", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		fail("source driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		fail("create migrator", err)
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		if len(os.Args) < 3 {
			fail("force", errors.New("version argument is required"))
		}
		version, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			fail("force", convErr)
		}
		err = m.Force(version)
	default:
		fail("usage", errors.New("unknown command "+strconv.Quote(cmd)))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fail("migrate "+cmd, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		fail("read version", verr)
	}
	logger.Info("migrations complete", "command", cmd, "version", version, "dirty", dirty)
}
