package main

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/internal/database"
	"github.com/customeros/txwatch/internal/repository"
	"github.com/customeros/txwatch/server"
)

func main() {
	app := &cli.App{
		Name:  "txwatch",
		Usage: "concludes transactions announced by email in a disposable mailbox",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Poll the mailbox on schedule and serve the status API",
				Action: runServer,
			},
			{
				Name:   "once",
				Usage:  "Run a single polling cycle and exit",
				Action: runOnce,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations for the attempt ledger",
				Action: migrate,
			},
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, errors.Wrap(err, "config initialization failed")
	}

	txwatchDB, err := database.InitTxwatchDatabase(cfg.DatabaseConfig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "txwatch database initialization failed")
	}

	return cfg, txwatchDB, nil
}

func runServer(_ *cli.Context) error {
	cfg, txwatchDB, err := setup()
	if err != nil {
		return err
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("txwatch starting up...")

	srv, err := server.NewServer(cfg, txwatchDB)
	if err != nil {
		return errors.Wrap(err, "server setup failed")
	}

	if err := srv.Run(); err != nil {
		return errors.Wrap(err, "server startup failed")
	}

	log.Println("Shutdown complete")
	return nil
}

func runOnce(c *cli.Context) error {
	cfg, txwatchDB, err := setup()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, txwatchDB)
	if err != nil {
		return errors.Wrap(err, "server setup failed")
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := srv.RunOnce(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log.Printf("Cycle %s: listed=%d deleted=%d skipped=%d", report.CycleId, report.Listed, report.Deleted, report.Skipped)
	return nil
}

func migrate(_ *cli.Context) error {
	_, txwatchDB, err := setup()
	if err != nil {
		return err
	}
	if txwatchDB == nil {
		return cli.Exit("POSTGRES_HOST is not set, nothing to migrate", 1)
	}

	if err := repository.MigrateDB(txwatchDB); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	log.Println("Database migration completed successfully")
	return nil
}
