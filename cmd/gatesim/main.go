// Command gatesim generates a gate galaxy, encodes every gate's dialing code
// and optionally stores the result and serves it over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/api"
	"github.com/warrook/Gate/internal/catalog"
	"github.com/warrook/Gate/internal/galaxy"
	"github.com/warrook/Gate/internal/persistence"
)

// exampleAddress is dialed at startup as a smoke check.
const exampleAddress = "0.-1.-1.640.493.50"

func main() {
	setupLogging(os.Getenv("GATE_LOG_LEVEL"))

	seed := envInt64("GATE_SEED", 42)
	dbPath := os.Getenv("GATE_DB")
	apiPort := int(envInt64("GATE_PORT", 0))
	galaxies := int(envInt64("GATE_GALAXIES", 1))
	resume := os.Getenv("GATE_RESUME") == "1"

	slog.Info("gatesim starting", "seed", seed, "galaxies", galaxies, "db", dbPath, "port", apiPort)

	// ── Catalog ───────────────────────────────────────────────────────
	cfg := catalog.DefaultConfig()
	for len(cfg.Galaxies) < galaxies {
		cfg.Galaxies = append(cfg.Galaxies, cfg.Galaxies[0])
	}
	cat, err := catalog.New(cfg)
	if err != nil {
		slog.Error("failed to build catalog", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if dbPath != "" {
		db, err = persistence.Open(dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", dbPath)
	}

	// ── Load or Generate ─────────────────────────────────────────────
	start := time.Now()
	loaded := false
	if resume && db != nil {
		loaded, err = restore(db, cat)
		if err != nil {
			slog.Error("failed to restore catalog", "error", err)
			os.Exit(1)
		}
	}
	if !loaded {
		if _, err := cat.Regenerate(seed); err != nil {
			slog.Error("generation failed", "error", err)
			os.Exit(1)
		}
		if db != nil {
			if _, err := db.SaveCatalog(cat, seed); err != nil {
				slog.Error("initial save failed", "error", err)
			}
		}
	}
	report(cat, time.Since(start))

	// ── HTTP API ──────────────────────────────────────────────────────
	if apiPort == 0 {
		return
	}
	apiServer := &api.Server{Catalog: cat, DB: db, Port: apiPort}
	apiServer.Start()
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Serving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// setupLogging installs a text handler on a terminal and JSON otherwise.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil || level == "" {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("ignoring invalid integer", "key", key, "value", v)
		return def
	}
	return n
}

// restore replaces the catalog's galaxies with stored ones. It reports false
// when the database holds no snapshot.
func restore(db *persistence.DB, cat *catalog.Catalog) (bool, error) {
	runID, err := db.GetMeta(persistence.MetaRunID)
	if err != nil {
		slog.Info("no saved catalog found, generating")
		return false, nil
	}
	indexes, err := db.GalaxyIndexes()
	if err != nil {
		return false, err
	}
	for _, i := range indexes {
		gal, err := db.LoadGalaxy(i)
		if err != nil {
			return false, err
		}
		if err := cat.Replace(gal); err != nil {
			return false, fmt.Errorf("restore galaxy %d: %w", i, err)
		}
	}
	slog.Info("catalog restored", "run_id", runID, "galaxies", len(indexes))
	return len(indexes) > 0, nil
}

func report(cat *catalog.Catalog, took time.Duration) {
	st := cat.Stats()
	for _, k := range []galaxy.Kind{galaxy.KindDirect, galaxy.KindReferenced, galaxy.KindDegraded} {
		slog.Info("address kind", "kind", k.String(), "count", st.Kinds[k])
	}

	fmt.Printf("\n%s gates across %d galaxies, %s in range of the grid, encoded in %s.\n",
		humanize.Comma(int64(st.Gates)), st.Galaxies, humanize.Comma(int64(st.InRange)), took.Round(time.Millisecond))
	if st.Gates > 0 {
		fmt.Printf("Direct %s%%, referenced %s%%, degraded %s%%.\n",
			humanize.FtoaWithDigits(pct(st.Kinds[galaxy.KindDirect], st.Gates), 1),
			humanize.FtoaWithDigits(pct(st.Kinds[galaxy.KindReferenced], st.Gates), 1),
			humanize.FtoaWithDigits(pct(st.Kinds[galaxy.KindDegraded], st.Gates), 1))
	}

	a, err := address.Parse(exampleAddress)
	if err != nil {
		return
	}
	g, err := cat.Decode(a)
	switch {
	case err == nil && g != nil:
		fmt.Printf("Dialing %s reaches gate %d at %s.\n", a, g.Index, g)
	case err != nil:
		slog.Warn("example address rejected", "address", exampleAddress, "error", err)
	default:
		fmt.Printf("Dialing %s reaches nothing.\n", a)
	}
}

func pct(n, total int) float64 {
	return 100 * float64(n) / float64(total)
}
