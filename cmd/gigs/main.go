package main

import (
	gocontext "context"
	"fmt"
	"os"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	"github.com/flanksource/gigs"
	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/auth"
	"github.com/flanksource/gigs/echo"
	"github.com/flanksource/gigs/fixtures/dummy"
	"github.com/flanksource/gigs/lifecycle"
	"github.com/flanksource/gigs/query"
	"github.com/flanksource/gigs/rbac"
	"github.com/flanksource/gigs/shutdown"
	"github.com/flanksource/gigs/telemetry"
)

var (
	debug     bool
	devTokens bool
)

var root = &cobra.Command{
	Use:          "gigs",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		shutdown.WaitForSignal()
	},
}

var serve = &cobra.Command{
	Use:   "serve",
	Short: "Serve the applications API",
	RunE: func(cmd *cobra.Command, args []string) error {
		stopTracer := telemetry.InitTracer()
		shutdown.AddHookWithPriority("tracer", shutdown.PriorityCritical, func() {
			ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 5*time.Second)
			defer cancel()
			_ = stopTracer(ctx)
		})

		ctx, stop, err := gigs.Start("gigs")
		if err != nil {
			return err
		}
		shutdown.AddHookWithPriority("database", shutdown.PriorityCritical, stop)
		defer shutdown.Shutdown()

		config := api.DefaultConfig.ReadEnv()
		verifier, err := auth.NewVerifier(config.HTTP.JWTSecret)
		if err != nil {
			return fmt.Errorf("--jwt-secret: %w", err)
		}

		enforcer, err := rbac.Default()
		if err != nil {
			return err
		}

		service := lifecycle.NewService(query.Applications{}, query.GigOwners{}, enforcer, lifecycle.Options{
			Precedence:   config.Precedence,
			StrictDelete: config.StrictDelete,
		})

		e := echo.New(ctx, echo.Options{
			Service:        service,
			Verifier:       verifier,
			RequestTimeout: config.HTTP.RequestTimeout,
			Metrics:        true,
			Debug:          debug,
		})
		return echo.Start(e, config.HTTP.Port)
	},
}

var migrate = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		config := api.DefaultConfig.ReadEnv()
		if config.ConnectionString == "" {
			return fmt.Errorf("--db not configured")
		}
		return gigs.Migrate(config)
	},
}

var seed = &cobra.Command{
	Use:   "seed",
	Short: "Insert the development users and gigs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, err := gigs.Start("gigs")
		if err != nil {
			return err
		}
		defer stop()

		if err := dummy.PopulateDBWithDummyModels(ctx.DB()); err != nil {
			return err
		}
		logger.Infof("Seeded %d users and %d gigs", len(dummy.AllDummyUsers), len(dummy.AllDummyGigs))

		if !devTokens {
			return nil
		}

		verifier, err := auth.NewVerifier(api.DefaultConfig.ReadEnv().HTTP.JWTSecret)
		if err != nil {
			return fmt.Errorf("--jwt-secret: %w", err)
		}
		for _, user := range dummy.AllDummyUsers {
			token, err := verifier.Sign(user.ID, 24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("%d\t%s\t%s\n", user.ID, user.Email, token)
		}
		return nil
	},
}

func main() {
	logger.BindFlags(root.PersistentFlags())
	gigs.BindPFlags(root.PersistentFlags())

	telemetry.BindFlags(serve.Flags(), "gigs")
	serve.Flags().BoolVar(&debug, "debug", false, "Expose /debug handlers on localhost")
	seed.Flags().BoolVar(&devTokens, "tokens", false, "Print a 24h bearer token for every seeded user")

	root.AddCommand(serve, migrate, seed)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
