// cmd/editor is the desktop front end: one editor session drawn in an
// ebiten window against the local DuckDB store.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/restock-console/mapeditor/internal/catalog"
	"github.com/restock-console/mapeditor/internal/config"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/event"
	"github.com/restock-console/mapeditor/internal/render"
	"github.com/restock-console/mapeditor/internal/storage"
	"github.com/spf13/cobra"
)

const (
	defaultMapName = "Sala principal"
	defaultMapSize = 20
)

func main() {
	var configPath, mapID string

	rootCmd := &cobra.Command{
		Use:          "mapeditor",
		Short:        "Desktop editor for supermarket restocking floor plans",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_FILE")
			}
			if configPath == "" {
				configPath = filepath.Join(".", "RestockMapEditor.config.xml")
			}
			return run(cmd.Context(), configPath, mapID)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to XML configuration (env CONFIG_FILE)")
	rootCmd.Flags().StringVarP(&mapID, "map", "m", "", "Map to open (defaults to the first stored map)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, mapID string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	palette, err := catalog.LoadPalette(cfg.Storage.PaletteFile)
	if err != nil {
		return fmt.Errorf("failed to load palette: %w", err)
	}

	store, err := storage.OpenDuckStore(cfg.Storage.DuckDBPath, storage.DuckOptions{
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		Threads:     cfg.Advanced.DuckDBThreads,
		ShelfLevels: palette.ShelfLevels,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if _, err := store.SeedObjectTypes(ctx, palette.Seeds()); err != nil {
		return fmt.Errorf("failed to seed object types: %w", err)
	}

	maps, err := store.ListMaps(ctx)
	if err != nil {
		return fmt.Errorf("failed to list maps: %w", err)
	}
	if len(maps) == 0 {
		info, err := store.CreateMap(ctx, defaultMapName, defaultMapSize, defaultMapSize)
		if err != nil {
			return fmt.Errorf("failed to create default map: %w", err)
		}
		fmt.Printf("Created map %q (%dx%d)\n", info.Name, info.Width, info.Height)
		maps = append(maps, *info)
	}

	ids := make([]string, len(maps))
	current := 0
	for i, m := range maps {
		ids[i] = m.ID
		if m.ID == mapID {
			current = i
		}
	}

	opts := editor.DefaultOptions()
	opts.MaxCanvas = cfg.Editor.MaxCanvasPixels
	opts.NameFallback = cfg.Editor.NameFallback
	opts.AnimationInterval = cfg.AnimationInterval()
	opts.DashStep = cfg.Editor.DashStep

	ed := editor.New(uuid.NewString(), store, event.NewDispatcher(), opts)
	defer ed.Close()
	if err := ed.Load(ctx, ids[current], false); err != nil {
		return err
	}

	painter, err := render.NewPainter()
	if err != nil {
		return fmt.Errorf("failed to load label font: %w", err)
	}

	app := newApp(ctx, ed, painter, ids, current)
	w, h := app.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("Restock Map Editor")
	return ebiten.RunGame(app)
}
