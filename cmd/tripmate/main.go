package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zen-systems/tripmate/pkg/chat"
	"github.com/zen-systems/tripmate/pkg/config"
	"github.com/zen-systems/tripmate/pkg/intent"
	"github.com/zen-systems/tripmate/pkg/plan"
	"github.com/zen-systems/tripmate/pkg/rerank"
	"github.com/zen-systems/tripmate/pkg/server"
)

var (
	modelsFile string
	envFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tripmate",
		Short: "Conversational travel planning assistant",
		Long: `Tripmate answers travel questions, searches nearby places, keeps the
	places a user picks, turns them into a day-by-day itinerary and edits
	individual stops after an explicit confirmation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
				log.Printf("[tripmate] env file %s: %v", envFile, err)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&modelsFile, "models", "", "path to model routing file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with API keys")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tripCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(intentsCmd())
	rootCmd.AddCommand(tasksCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if modelsFile != "" {
		return config.LoadWithModelsFile(modelsFile)
	}
	return config.Load()
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			opts := []server.Option{
				server.WithAllowedOrigins(cfg.AllowedOrigins),
				server.WithRateLimit(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
				server.WithMetricsHandler(a.metricsHandler()),
			}
			if zones, err := plan.NewZoneFinder(); err != nil {
				log.Printf("[tripmate] timezone finder unavailable, calendars use UTC: %v", err)
			} else {
				opts = append(opts, server.WithZoneFinder(zones))
			}

			return server.New(a.dispatcher, a.plans, opts...).Run(ctx, cfg.Listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func askCmd() *cobra.Command {
	var (
		userID      string
		tripID      string
		lat, lon    float64
		personality string
	)

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Handle one chat turn and print the reply as JSON",
		Long: `Runs a single turn through the dispatcher. Conversation memory and
	memory-backed stores do not survive between invocations; configure MONGO_URI
	and REDIS_ADDR for multi-turn use from the command line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			req := chat.Request{Query: args[0], UserID: userID, TripID: tripID}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				req.Latitude, req.Longitude = &lat, &lon
			}
			if personality != "" {
				p, err := rerank.ParsePersonality(personality)
				if err != nil {
					return fmt.Errorf("invalid --personality: %w", err)
				}
				req.Personality = p
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(a.dispatcher.Handle(ctx, req))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user id")
	cmd.Flags().StringVar(&tripID, "trip", "local", "trip id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the user")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of the user")
	cmd.Flags().StringVar(&personality, "personality", "", `personality JSON, e.g. {"money":"money1"}`)

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the plan, trip and user tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, err := openPlans(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", cfg.SQLDriver)
			return nil
		},
	}
}

func tripCmd() *cobra.Command {
	var (
		userID      string
		start, end  string
		personality string
	)

	cmd := &cobra.Command{
		Use:   "trip [tripId]",
		Short: "Create or replace a trip and optionally the owner's personality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trip := plan.Trip{TripID: args[0], UserID: userID, StartDate: start, EndDate: end}
			if _, err := trip.Days(); err != nil {
				return fmt.Errorf("invalid trip dates: %w", err)
			}
			if personality != "" {
				if _, err := rerank.ParsePersonality(personality); err != nil {
					return fmt.Errorf("invalid --personality: %w", err)
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx := cmd.Context()
			store, err := openPlans(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveTrip(ctx, trip); err != nil {
				return err
			}
			if personality != "" {
				if err := store.SaveUser(ctx, userID, personality); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved trip %s (%s to %s) for %s\n", trip.TripID, start, end, userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "owner user id")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&personality, "personality", "", "personality JSON stored for the user")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func exportCmd() *cobra.Command {
	var (
		userID string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [tripId]",
		Short: "Write a trip's plans as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx := cmd.Context()
			store, err := openPlans(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			plans, err := store.ListPlans(ctx, userID, args[0])
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				return fmt.Errorf("trip %s has no plans for %s", args[0], userID)
			}
			zones, err := plan.NewZoneFinder()
			if err != nil {
				log.Printf("[tripmate] timezone finder unavailable, using UTC: %v", err)
			}
			cal, err := plan.ExportICS("Trip "+args[0], plans, zones, time.Now())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), cal)
				return err
			}
			return os.WriteFile(output, []byte(cal), 0o644)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "owner user id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func intentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intents",
		Short: "List the intents the classifier can choose",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTENT\tREQUIRED\tDESCRIPTION")
			for _, t := range intent.Tools() {
				desc := t.Description
				if len(desc) > 60 {
					desc = desc[:57] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, strings.Join(t.Required, ", "), desc)
			}
			return w.Flush()
		},
	}
}

func tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Show which adapter and model serve each generation task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tADAPTER\tMODEL\tSTATUS")
			tasks := cfg.Models.Tasks()
			for _, name := range cfg.Models.TaskNames() {
				rt := tasks[name]
				status := "no key, mock"
				if cfg.HasAdapter(rt.Adapter) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, rt.Adapter, rt.Model, status)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "CONFIRM TOKEN\t%s\t\t\n", cfg.Models.ConfirmToken)
			return w.Flush()
		},
	}
}
