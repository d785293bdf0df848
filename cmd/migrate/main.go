// Command migrate applies the quoting schema to PostgreSQL.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/erp/quoting/internal/infrastructure/logger"
	"github.com/erp/quoting/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `Usage: migrate [flags] <command> [argument]

Commands:
  up                apply every pending migration
  down              roll the schema back to empty
  step <n>          move n migrations (negative rolls back)
  version           print the applied version
  force <version>   mark a version as applied without running it

Flags:
  -path       migrations directory (default: schema embedded in the binary)
  -dsn        connection string (default: built from QUOTE_DATABASE_*)
  -log-level  debug, info, warn or error
`

var errUsage = errors.New("invalid usage")

func main() {
	migrationsPath := flag.String("path", "", "migrations directory")
	dsn := flag.String("dsn", "", "PostgreSQL connection string")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal("Failed to load configuration", zap.Error(err))
		}
		*dsn = cfg.Database.DSN()
	}
	if *migrationsPath != "" {
		if *migrationsPath, err = filepath.Abs(*migrationsPath); err != nil {
			log.Fatal("Invalid migrations path", zap.Error(err))
		}
	}

	if err := run(*dsn, *migrationsPath, flag.Args(), log); err != nil {
		if errors.Is(err, errUsage) {
			log.Error(err.Error())
			flag.Usage()
			os.Exit(2)
		}
		log.Fatal("Migration failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func run(dsn, migrationsPath string, args []string, log *zap.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd := args[0]; cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		log.Warn("Forcing schema version", zap.Int("version", v))
		return m.Force(v)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%w: %s needs a numeric argument", errUsage, args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[1])
	}
	return n, nil
}
