package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"greenbridge/config"
	"greenbridge/geo"
	"greenbridge/httpapi"
	"greenbridge/models"
	"greenbridge/services"
	"greenbridge/storage"
	"greenbridge/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "greenbridge",
	Short:         "GreenBridge rice marketplace",
	Long:          "GreenBridge connects rice farmers and buyers: price prediction, market snapshots, farmer matching and a trading assistant.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.LogLevel = level
		}
		if driver, _ := cmd.Flags().GetString("store"); driver != "" {
			cfg.StoreDriver = driver
		}
		logger = utils.NewLogger(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "", "store driver override (postgres, sqlite)")

	rootCmd.AddCommand(serveCmd, predictCmd, snapshotCmd, matchCmd, chatCmd, backfillCmd)
}

// withApp wires dependencies for the duration of one command.
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, a, cmd, args)
	}
}

// --- serve ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.cfg.HTTPAddr
		}

		srv := httpapi.NewServer(a.market, a.logger)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.logger.Info("[http] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}),
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default HTTP_ADDR)")
}

// --- predict ---

var predictCmd = &cobra.Command{
	Use:   "predict [rice-type] [quantity]",
	Short: "Predict the per-kg price of an order",
	Example: `  greenbridge predict Basmati 2000
  greenbridge predict "Sona Masoori" "5 quintals"`,
	Args: cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		kg, err := services.ParseQuantity(args[1])
		if err != nil {
			return err
		}
		res, err := a.market.PredictPrice(ctx, args[0], kg)
		if err != nil {
			return err
		}

		source := "baseline"
		if res.LiveData {
			source = "live listings"
		}
		fmt.Printf("\n🌾 %s, %s\n", res.RiceType, services.FormatQuantity(res.QuantityKg, services.UnitQuintal))
		fmt.Printf("   Predicted price: %s/kg (confidence %.0f%%, %s)\n", services.FormatPrice(res.PredictedPrice), res.Confidence*100, source)
		for _, f := range res.Factors {
			fmt.Printf("   • %-40s %s\n", f.Name, f.Effect)
		}
		fmt.Println()
		return nil
	}),
}

// --- snapshot ---

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [rice-type...]",
	Short: "Print market statistics and append them to the snapshot CSV",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		snapshot, err := a.market.MarketSnapshot(ctx, args)
		if err != nil {
			return err
		}
		a.snapshots.Print(os.Stdout, snapshot)

		types := args
		if len(types) == 0 {
			types = services.RiceTypes
		}
		stats := make([]*models.MarketStat, 0, len(snapshot))
		for _, rt := range types {
			if st, ok := snapshot[services.CanonicalRiceType(rt)]; ok {
				stats = append(stats, st)
				fmt.Printf("  %s\n", services.MarketInsight(st))
			}
		}
		fmt.Println()

		if noCSV, _ := cmd.Flags().GetBool("no-csv"); noCSV {
			return nil
		}
		w, err := storage.NewCSVWriter(a.cfg.SnapshotCSVPath)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.WriteSnapshot(stats); err != nil {
			return err
		}
		a.logger.Info("[snapshot] %d rows appended to %s", len(stats), a.cfg.SnapshotCSVPath)
		return nil
	}),
}

func init() {
	snapshotCmd.Flags().Bool("no-csv", false, "skip the CSV export")
}

// --- match ---

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find nearby farmers for an order",
	Example: `  greenbridge match --type Basmati --quantity 5 --unit quintal --lat 17.385 --lon 78.4867
  greenbridge match --buyer 12 --type any`,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		buyerID, _ := flags.GetInt64("buyer")
		riceType, _ := flags.GetString("type")
		quantity, _ := flags.GetFloat64("quantity")
		unit, _ := flags.GetString("unit")
		radius, _ := flags.GetFloat64("radius")
		limit, _ := flags.GetInt("limit")

		criteria := services.MatchCriteria{RiceType: riceType, Quantity: quantity, Unit: unit, MaxDistanceKm: radius, Limit: limit}
		if flags.Changed("lat") || flags.Changed("lon") {
			lat, _ := flags.GetFloat64("lat")
			lon, _ := flags.GetFloat64("lon")
			criteria.Buyer = &geo.Point{Lat: lat, Lon: lon}
		}

		matches, err := a.market.FindMatches(ctx, buyerID, criteria)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No farmers found. Widen the radius or lower the quantity.")
			return nil
		}
		fmt.Printf("\n  %-6s %-22s %-18s %9s %12s %10s %s\n", "ID", "Seller", "Location", "Dist km", "Available", "₹/kg", "Grade")
		for _, m := range matches {
			fmt.Printf("  %-6d %-22s %-18s %9.1f %12s %10.2f %s\n", m.ListingID, m.SellerName, m.SellerLocation,
				m.DistanceKm, services.FormatQuantity(m.AvailableQuantityKg, services.UnitTon), m.PricePerKg, m.QualityGrade)
		}
		fmt.Println()
		return nil
	}),
}

func init() {
	f := matchCmd.Flags()
	f.Int64("buyer", 0, "registered buyer whose coordinates to search from")
	f.String("type", "any", "rice type, or any")
	f.Float64("quantity", 0, "minimum quantity the seller must have")
	f.String("unit", services.UnitKg, "quantity unit (kg, quintal, ton)")
	f.Float64("lat", 0, "buyer latitude")
	f.Float64("lon", 0, "buyer longitude")
	f.Float64("radius", 0, "search radius in km (default MATCH_DEFAULT_RADIUS_KM)")
	f.Int("limit", 0, "maximum results (default MATCH_DEFAULT_LIMIT)")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask the trading assistant a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		partyID, _ := cmd.Flags().GetInt64("party")
		reply, err := a.market.Chat(ctx, partyID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("\n[%s via %s]\n%s\n\n", reply.Intent, reply.Source, reply.Text)
		return nil
	}),
}

func init() {
	chatCmd.Flags().Int64("party", 0, "registered party asking (0 for guest)")
}

// --- geocode-backfill ---

var backfillCmd = &cobra.Command{
	Use:   "geocode-backfill",
	Short: "Geocode registered parties that have a location but no coordinates",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		pool := utils.NewWorkerPool(a.cfg.GeocoderConcurrency, a.cfg.GeocoderRateLimitMs)

		res, err := a.market.BackfillCoordinates(ctx, pool, limit)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Printf("Geocoded %d of %d parties (%d unresolved, %d failed, %d skipped)\n",
			res.Updated, res.Candidates, res.Unresolved, res.Failed, res.Skipped)
		return nil
	}),
}

func init() {
	backfillCmd.Flags().Int("limit", 500, "maximum parties to process")
}
