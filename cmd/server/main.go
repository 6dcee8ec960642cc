package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"shadowbox.ai/internal/persistence/indexdb"
	persistlog "shadowbox.ai/internal/persistence/log"
	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/protocol"
	"shadowbox.ai/internal/sim/catalogs"
	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/sim/tuning"
	"shadowbox.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		puzzleID   = flag.String("puzzle", "diagonal", "puzzle id from the catalog (empty starts with no goals)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite round index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load puzzles: %v", err)
	}

	id := strings.TrimSpace(*puzzleID)
	def, known := cat.ByID[id]
	if id != "" && !known {
		logger.Fatalf("unknown puzzle %q (have %s)", id, strings.Join(cat.IDs(), ", "))
	}
	if id == "" {
		id = "freeform"
		def = catalogs.PuzzleDef{ID: id, GridSize: tune.GridSize}
	}

	puzzleDir := filepath.Join(*dataDir, "puzzles", id)
	_ = os.MkdirAll(puzzleDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(puzzleDir, "index.sqlite"), id)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertPuzzles(cat, tune); err != nil {
			logger.Printf("index: upsert puzzles: %v", err)
		}
	}

	roundLog := persistlog.NewRoundLogger(puzzleDir)
	defer roundLog.Close()
	var roundLogger puzzle.RoundLogger = roundLog
	if idx != nil {
		roundLogger = multiRoundLogger{a: roundLog, b: idx}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(puzzleDir)
	}

	e, err := openEngine(def, puzzleDir, snapshotToLoad, roundLogger, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	runner := puzzle.NewRunner(e, puzzle.RunnerConfig{
		AdvanceEvery:        tune.AdvanceEvery(),
		SnapshotEveryRounds: tune.SnapshotEveryRounds,
		IntakeBuffer:        tune.IntakeBuffer,
	})

	runner.SetRoundLogger(roundLogger)

	snapCh := make(chan snapshot.SnapshotV1, 2)
	runner.SetSnapshotSink(snapCh)

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("schemas: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Snapshot writer.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap := <-snapCh:
				if _, err := persistSnapshot(puzzleDir, snap, idx, logger); err != nil {
					logger.Printf("snapshot write: %v", err)
				}
			}
		}
	})

	g.Go(func() error {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("runner: %w", err)
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(id, runner, idx))
	if defaultEnableAdminHTTP() {
		mux.HandleFunc("/admin/v1/state", stateHandler(runner))
		mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(runner))
	} else {
		logger.Printf("admin endpoints disabled (DEPLOY_ENV=%s)", os.Getenv("DEPLOY_ENV"))
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(runner, validator, ws.Options{
		MaxQueue:      tune.MaxQueue,
		CatalogDigest: cat.Digest,
	}, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})

	g.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Printf("stopped: %v", err)
	}

	// Run has returned, so the engine is no longer shared.
	if path, err := persistSnapshot(puzzleDir, e.ExportSnapshot(), idx, logger); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("final snapshot=%s round=%d", filepath.Base(path), e.Round())
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot returns the highest-round snapshot under puzzleDir.
func latestSnapshot(puzzleDir string) string {
	dir := filepath.Join(puzzleDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestRound uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		round, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || round > bestRound {
			bestRound = round
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiRoundLogger struct {
	a puzzle.RoundLogger
	b puzzle.RoundLogger
}

func (m multiRoundLogger) WriteRound(entry puzzle.RoundLogEntry) error {
	var errA, errB error
	if m.a != nil {
		errA = m.a.WriteRound(entry)
	}
	if m.b != nil {
		errB = m.b.WriteRound(entry)
	}
	return errors.Join(errA, errB)
}
