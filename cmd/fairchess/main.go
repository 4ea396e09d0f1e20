// fairchess generates materially balanced random chess starting positions,
// confirming each candidate with an engine evaluation before printing it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/fairchess/internal/config"
	"github.com/park285/fairchess/internal/engine"
	"github.com/park285/fairchess/internal/generate"
	"github.com/park285/fairchess/internal/obslog"
	"github.com/park285/fairchess/internal/store"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	count := 1
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n > 0 {
			count = n
		}
	}

	chain, err := buildChain(cfg)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}
	defer chain.Close()

	orch := generate.NewOrchestrator(chain)
	if cfg.RedisURL != "" {
		archive, err := store.NewArchive(cfg.RedisURL, time.Duration(cfg.RecentTTL)*time.Second)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer archive.Close()
		orch.AttachArchive(archive)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := generate.Options{
		MaxEvaluationCP: cfg.MaxEvaluationCP,
		EngineDepth:     cfg.EngineDepth,
		MultiPV:         cfg.MultiPV,
		MaxAttempts:     cfg.MaxAttempts,
		Checks: generate.Checks{
			KingsNotInCheck:          cfg.Fairness.KingsNotInCheck,
			BishopsOnDifferentColors: cfg.Fairness.BishopsOnDifferentColors,
			NoStalemate:              cfg.Fairness.NoStalemate,
			EvaluationWithinRange:    cfg.Fairness.EvaluationWithinRange,
		},
		Progress: func(attempt int) {
			if attempt%25 == 0 {
				obslog.L().Info("still_searching", zap.Int("attempt", attempt))
			}
		},
	}

	for i := 0; i < count; i++ {
		result, err := orch.Generate(ctx, opts)
		if err != nil {
			obslog.L().Error("generation_failed", zap.Error(err))
			os.Exit(1)
		}
		printResult(i+1, result)
	}
}

func buildChain(cfg *config.AppConfig) (*engine.Chain, error) {
	backends := make([]engine.Backend, 0, 3)

	if cfg.AnalysisURL != "" {
		backends = append(backends, engine.NewRemoteBackend(cfg.AnalysisURL,
			engine.WithRemoteTimeout(time.Duration(cfg.EvalTimeoutMS)*time.Millisecond)))
	}

	if cfg.StockfishPath != "" {
		var override *engine.TierOverride
		if o, ok := cfg.Profiles[cfg.EngineProfile]; ok {
			override = &engine.TierOverride{
				SkillLevel:    o.SkillLevel,
				LimitStrength: o.LimitStrength,
				TargetElo:     o.TargetElo,
			}
		}
		profile, err := engine.TierProfile(cfg.EngineProfile, cfg.EngineThreads, cfg.EngineHashMB, cfg.MultiPV, override)
		if err != nil {
			return nil, err
		}
		process, err := engine.NewProcessBackend(cfg.StockfishPath, profile, time.Duration(cfg.EvalTimeoutMS)*time.Millisecond)
		if err != nil {
			return nil, err
		}
		backends = append(backends, process)
	}

	backends = append(backends, engine.NewMaterialBackend())
	return engine.NewChain(backends...), nil
}

func printResult(n int, result *generate.Result) {
	v := result.Verdict
	fmt.Printf("position %d  (attempts=%d, backend=%s)\n", n, result.Attempts, result.Backend)
	fmt.Printf("  fen:   %s\n", result.FEN)
	fmt.Printf("  eval:  %s (%s)\n", v.Score, v.Class)
	fmt.Printf("  odds:  white %d%%  black %d%%  draw %d%%\n", v.WinChance.White, v.WinChance.Black, v.WinChance.Draw)
	if v.Degraded {
		fmt.Printf("  note:  engine unavailable, material estimate only\n")
	}
}
