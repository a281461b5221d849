package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bibliodesign/site/internal/adapters/repository"
	"github.com/bibliodesign/site/internal/application/services"
	"github.com/bibliodesign/site/internal/infrastructure/config"
	"github.com/bibliodesign/site/internal/infrastructure/database"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/infrastructure/schema"
	"github.com/bibliodesign/site/internal/infrastructure/server"
	"github.com/bibliodesign/site/internal/infrastructure/session"
	"github.com/bibliodesign/site/internal/ports"
)

// Build information, set with -ldflags
var (
	Version   = "dev"
	GitCommit = "development"
)

// NewRootCommand assembles the site CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "site",
		Short:         "BiblioDesign website",
		Long:          `BiblioDesign serves the public marketing site and its admin panel from JSON documents in a data directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewUserCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  "Start the web server with all public and admin routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Admin account commands",
		Long:  "Create and list admin accounts stored in users.json",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			replace, _ := cmd.Flags().GetBool("replace")

			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			return createUser(cmd, ports.CreateUserRequest{Username: username, Password: password, Replace: replace})
		},
	}

	createUserCmd.Flags().String("username", "", "Account name (required)")
	createUserCmd.Flags().String("password", "", "Account password, at least 8 characters (required)")
	createUserCmd.Flags().Bool("replace", false, "Set a new password if the account already exists")

	listUserCmd := &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUsers(cmd)
		},
	}

	userCmd.AddCommand(createUserCmd, listUserCmd)
	return userCmd
}

// NewValidateCommand creates the data validation command
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the data documents against their schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateData(cmd)
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "BiblioDesign site %s\n", Version)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

// openStore loads the configuration and opens the data directory
func openStore() (*config.Config, *logger.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.New(cfg.Storage, appLogger)
	if err != nil {
		appLogger.Close()
		return nil, nil, nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	return cfg, appLogger, db, nil
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, appLogger, db, err := openStore()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := server.New(cfg, db, store, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting BiblioDesign",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"data_dir", db.Dir(),
		"session_store", cfg.Session.Store,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(cfg.Server.GetAddr())
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	appLogger.Infow("Server stopped")
	return nil
}

// newSessionStore builds the configured session store and its cleanup
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Store != "redis" {
		return session.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store := session.NewRedisStore(client)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}

	return store, func() { client.Close() }, nil
}

func createUser(cmd *cobra.Command, req ports.CreateUserRequest) error {
	cfg, appLogger, db, err := openStore()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	users := services.NewUserService(repository.NewUserRepository(db), cfg.Auth.BcryptCost, appLogger)

	user, err := users.CreateUser(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User %s saved to %s\n", user.Username, db.Dir())
	return nil
}

func listUsers(cmd *cobra.Command) error {
	cfg, appLogger, db, err := openStore()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	users := services.NewUserService(repository.NewUserRepository(db), cfg.Auth.BcryptCost, appLogger)

	list, err := users.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No users")
		return nil
	}
	for _, u := range list {
		fmt.Fprintln(out, u.Username)
	}
	return nil
}

func validateData(cmd *cobra.Command) error {
	_, appLogger, db, err := openStore()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	results, err := schema.ValidateStore(cmd.Context(), db)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for _, r := range results {
		switch {
		case !r.Present:
			fmt.Fprintf(out, "%-20s missing (treated as empty)\n", r.Document)
		case r.Err != nil:
			invalid++
			fmt.Fprintf(out, "%-20s INVALID\n%v\n", r.Document, r.Err)
		default:
			fmt.Fprintf(out, "%-20s ok\n", r.Document)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d document(s) failed validation", invalid)
	}
	return nil
}
