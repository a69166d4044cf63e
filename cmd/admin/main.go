// Command admin runs operator tasks against the database:
//
//	admin migrate up|down|status
//	admin promote <email>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/config"
	"bookmarket/internal/database"
	"bookmarket/internal/log"
	"bookmarket/internal/models"
	"bookmarket/internal/repository"
)

func usage() {
	fmt.Fprintln(flag.CommandLine.Output(), "usage: admin migrate up|down|status")
	fmt.Fprintln(flag.CommandLine.Output(), "       admin promote [-demote] <email>")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := log.New(cfg.Environment, "admin")

	if cfg.Postgres.DSN == "" {
		logger.Fatal().Msg("postgres.dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	err = run(ctx, pool, flag.Args())
	pool.Close()
	if err != nil {
		logger.Error().Err(err).Msg("admin command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	switch args[0] {
	case "migrate":
		if len(args) != 2 {
			usage()
			return errors.New("migrate needs one of up, down, status")
		}
		switch args[1] {
		case "up":
			return database.Migrate(ctx, pool)
		case "down":
			return database.MigrateDown(ctx, pool)
		case "status":
			return database.MigrationStatus(ctx, pool)
		}
		return fmt.Errorf("unknown migrate direction %q", args[1])

	case "promote":
		fs := flag.NewFlagSet("promote", flag.ContinueOnError)
		demote := fs.Bool("demote", false, "revoke admin instead of granting it")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			usage()
			return errors.New("promote needs exactly one email")
		}

		role := models.UserRoleAdmin
		if *demote {
			role = models.UserRoleMember
		}
		email := strings.ToLower(strings.TrimSpace(fs.Arg(0)))
		if err := repository.NewUserRepository(pool).UpdateRole(ctx, email, role); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			return err
		}
		fmt.Printf("%s is now %s\n", email, role)
		return nil
	}

	usage()
	return fmt.Errorf("unknown command %q", args[0])
}
