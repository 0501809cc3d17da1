package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/restock-console/mapeditor/internal/api"
	"github.com/restock-console/mapeditor/internal/catalog"
	"github.com/restock-console/mapeditor/internal/config"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/render"
	"github.com/restock-console/mapeditor/internal/session"
	"github.com/restock-console/mapeditor/internal/storage"
	"github.com/restock-console/mapeditor/internal/web"
	"github.com/spf13/cobra"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const defaultConfigName = "RestockMapEditor.config.xml"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "mapeditor-server",
		Short:        "HTTP server for editing supermarket restocking floor plans",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_FILE")
			}
			if configPath == "" {
				// Get the executable's directory for config resolution
				exePath, err := os.Executable()
				if err != nil {
					return fmt.Errorf("failed to get executable path: %w", err)
				}
				configPath = filepath.Join(filepath.Dir(exePath), defaultConfigName)
			}
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to XML configuration (env CONFIG_FILE)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	api.ShowErrorDetails = cfg.Advanced.LogLevel == "debug"

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	palette, err := catalog.LoadPalette(cfg.Storage.PaletteFile)
	if err != nil {
		return fmt.Errorf("failed to load palette: %w", err)
	}

	// Initialize storage
	store, err := storage.OpenDuckStore(cfg.Storage.DuckDBPath, storage.DuckOptions{
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		Threads:     cfg.Advanced.DuckDBThreads,
		ShelfLevels: palette.ShelfLevels,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	seeded, err := store.SeedObjectTypes(ctx, palette.Seeds())
	if err != nil {
		return fmt.Errorf("failed to seed object types: %w", err)
	}
	if seeded > 0 {
		fmt.Printf("Seeded %d object types from %s\n", seeded, cfg.Storage.PaletteFile)
	}

	exports, err := storage.NewLocalStore(cfg.Storage.ExportsDirectory)
	if err != nil {
		return fmt.Errorf("failed to initialize export storage: %w", err)
	}

	painter, err := render.NewPainter()
	if err != nil {
		return fmt.Errorf("failed to load label font: %w", err)
	}

	// Initialize session manager
	edOpts := editor.DefaultOptions()
	edOpts.MaxCanvas = cfg.Editor.MaxCanvasPixels
	edOpts.NameFallback = cfg.Editor.NameFallback
	edOpts.AnimationInterval = cfg.AnimationInterval()
	edOpts.DashStep = cfg.Editor.DashStep

	sessionMgr := session.NewManager(store, session.Config{
		MaxSessions: cfg.Editor.MaxSessions,
		Editor:      edOpts,
	})
	defer sessionMgr.Close()

	// Start background session cleanup
	go sessionMgr.RunCleanup(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())

	// Check if running in embedded mode (browser client built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	h := api.NewHandler(store, sessionMgr, exports, painter, Version)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return api.SkipRequestLog(c.Path())
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/events")
		},
		ErrorMessage: "Request timeout - backend took too long",
	}))

	// Compression middleware
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// PNG is already compressed; websockets must not be wrapped
			return strings.HasSuffix(c.Path(), ".png") || strings.HasSuffix(c.Path(), "/events")
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	// API Routes
	api.RegisterRoutes(e, h)
	api.RegisterWebSocketRoutes(e, h)

	// Register embedded browser client if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded browser client from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, embeddedMode)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func printBanner(cfg *config.AppConfig, configPath string, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "API + Browser Client"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Restock Map Editor Server                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Database:  %-46s║\n", cfg.Storage.DuckDBPath)
	fmt.Printf("║  Exports:   %-46s║\n", cfg.Storage.ExportsDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
