// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/ariebrainware/patient-portal/datasource"
	"github.com/ariebrainware/patient-portal/endpoint"
	"github.com/ariebrainware/patient-portal/inference"
	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/record"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const sessionPurgeInterval = 30 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:   "patient-portal",
		Short: "Patient portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(geoipCmd())
	rootCmd.AddCommand(descriptionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func geoipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geoip",
		Short: "Manage the GeoIP database used for security log locations",
	}

	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download a GeoIP MMDB file",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			dest, _ := cmd.Flags().GetString("dest")
			if url == "" {
				return errors.New("--url is required")
			}
			path, err := util.DownloadGeoIPWithRequest(cmd.Context(), util.DownloadRequest{URL: url, DestPath: dest})
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
			if err := util.ValidateGeoIP(path); err != nil {
				return fmt.Errorf("downloaded file is not a valid GeoIP database: %w", err)
			}
			fmt.Printf("GeoIP database written to %s\n", path)
			return nil
		},
	}
	downloadCmd.Flags().String("url", os.Getenv("GEOIP_DOWNLOAD_URL"), "URL of the MMDB file (.mmdb or .mmdb.gz)")
	downloadCmd.Flags().String("dest", envDefault("GEOIP_DB_PATH", "GeoLite2-City.mmdb"), "Destination path")
	cmd.AddCommand(downloadCmd)

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a GeoIP MMDB file can be opened",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if err := util.ValidateGeoIP(path); err != nil {
				return err
			}
			fmt.Printf("%s is a valid GeoIP database\n", path)
			return nil
		},
	}
	validateCmd.Flags().String("path", envDefault("GEOIP_DB_PATH", "GeoLite2-City.mmdb"), "Path to the MMDB file")
	cmd.AddCommand(validateCmd)

	return cmd
}

// descriptionCmd encodes and inspects record descriptions for whoever writes
// them into the data service.
func descriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "description",
		Short: "Encode or inspect medical record descriptions",
	}

	encodeCmd := &cobra.Command{
		Use:     "encode",
		Short:   "Print a versioned description for a doctor note and blood test results",
		Example: `patient-portal description encode --note "Patient stable" --test HGB=13.2 --test WBC=6.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tests, _ := cmd.Flags().GetStringArray("test")
			results, err := parseBloodTests(tests)
			if err != nil {
				return err
			}
			var note *string
			if cmd.Flags().Changed("note") {
				n, _ := cmd.Flags().GetString("note")
				note = &n
			}
			out, err := record.EncodeDescription(note, results)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	encodeCmd.Flags().String("note", "", "Doctor note")
	encodeCmd.Flags().StringArray("test", nil, "Blood test result as PARAMETER=VALUE (repeatable)")
	cmd.AddCommand(encodeCmd)

	parseCmd := &cobra.Command{
		Use:   "parse DESCRIPTION",
		Short: "Show the doctor note and blood test results found in a description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := record.ParseDescription(args[0])
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "note: %s\n", d.NoteText())
			if !d.HasBloodTest {
				fmt.Fprintln(w, record.NoBloodTestText)
			}
			for _, r := range d.BloodTest {
				fmt.Fprintf(w, "%s: %s\n", r.Parameter, r.Value)
			}
			return nil
		},
	}
	cmd.AddCommand(parseCmd)

	return cmd
}

func parseBloodTests(raw []string) ([]record.BloodTestResult, error) {
	results := make([]record.BloodTestResult, 0, len(raw))
	for _, r := range raw {
		param, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("blood test %q is not PARAMETER=VALUE", r)
		}
		results = append(results, record.BloodTestResult{Parameter: strings.TrimSpace(param), Value: strings.TrimSpace(value)})
	}
	return results, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runServer() error {
	// Load the configuration
	cfg := config.LoadConfig()
	logger := util.Logger()

	db, err := config.ConnectMySQL()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.AutoMigrate(&model.Session{}, &model.SecurityLog{}, &model.Analysis{}); err != nil {
		logger.Fatal().Err(err).Msg("auto migrate failed")
	}
	util.SetSecurityLoggerDB(db)

	if _, err := config.ConnectRedis(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, sessions fall back to the database")
	}
	util.InitSessionCacheFromEnv()
	if err := util.InitGeoIP(""); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer util.CloseGeoIP()

	deps := endpoint.NewDeps(
		datasource.NewClientFromConfig(cfg),
		inference.NewClientFromConfig(cfg),
		cfg.LookupConcurrency,
		cfg.SessionTTL,
	)

	// Set Gin mode from config
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := endpoint.SetupRouter(cfg, db, deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go purgeSessions(ctx, db)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.AppPort),
		Handler: router,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("data_api", cfg.DataAPIURL).Str("inference", cfg.InferenceURL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("error starting server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func purgeSessions(ctx context.Context, db *gorm.DB) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := model.PurgeExpiredSessions(db, now)
			if err != nil {
				util.Logger().Warn().Err(err).Msg("purge expired sessions failed")
				continue
			}
			hits, misses, size := util.GetGeoIPCacheMetrics()
			util.Logger().Info().
				Int64("purged", n).
				Int64("geoip_hits", hits).
				Int64("geoip_misses", misses).
				Int("geoip_cached", size).
				Msg("housekeeping")
		}
	}
}
