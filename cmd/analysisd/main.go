// analysisd exposes the position-analysis endpoint consumed by the remote
// evaluation backend: POST /analyze with a FEN, answered from a local UCI
// engine process.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/fairchess/internal/config"
	"github.com/park285/fairchess/internal/engine"
	"github.com/park285/fairchess/internal/obslog"
	"github.com/park285/fairchess/internal/rules"
	"github.com/park285/fairchess/pkg/analysisdto"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.StockfishPath == "" {
		log.Fatalf("STOCKFISH_PATH is required")
	}

	set := &backendSet{
		cfg:      cfg,
		backends: make(map[string]*engine.ProcessBackend),
	}
	defer set.closeAll()

	server := &fasthttp.Server{
		Handler:      analyzeHandler(cfg, set),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = server.Shutdown()
	}()

	obslog.L().Info("analysisd_listening", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		obslog.L().Error("server_stopped", zap.Error(err))
		os.Exit(1)
	}
}

// backendSet keeps one engine process per strength tier, created lazily.
type backendSet struct {
	cfg *config.AppConfig

	mu       sync.Mutex
	backends map[string]*engine.ProcessBackend
}

func (s *backendSet) get(tier string) (*engine.ProcessBackend, error) {
	if tier == "" {
		tier = s.cfg.EngineProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.backends[tier]; ok {
		return b, nil
	}

	profile, err := engine.TierProfile(tier, s.cfg.EngineThreads, s.cfg.EngineHashMB, s.cfg.MultiPV, tierOverride(s.cfg, tier))
	if err != nil {
		return nil, err
	}
	b, err := engine.NewProcessBackend(s.cfg.StockfishPath, profile, time.Duration(s.cfg.EvalTimeoutMS)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	s.backends[tier] = b
	return b, nil
}

func (s *backendSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.backends {
		_ = b.Close()
	}
}

func tierOverride(cfg *config.AppConfig, tier string) *engine.TierOverride {
	o, ok := cfg.Profiles[tier]
	if !ok {
		return nil
	}
	return &engine.TierOverride{
		SkillLevel:    o.SkillLevel,
		LimitStrength: o.LimitStrength,
		TargetElo:     o.TargetElo,
	}
}

func analyzeHandler(cfg *config.AppConfig, set *backendSet) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/analyze" || !ctx.IsPost() {
			writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route")
			return
		}

		var req analysisdto.AnalyzeRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "malformed request body")
			return
		}
		if _, err := rules.Load(req.FEN); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "invalid_fen", "fen does not parse")
			return
		}
		depth := req.Depth
		if depth <= 0 {
			depth = cfg.EngineDepth
		}

		backend, err := set.get(req.Difficulty)
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_difficulty", err.Error())
			return
		}

		res, err := backend.Analyze(ctx, engine.Request{FEN: req.FEN, Depth: depth, MultiPV: req.MultiPV})
		if err != nil {
			obslog.L().Warn("analyze_failed", zap.String("fen", req.FEN), zap.Error(err))
			status := fasthttp.StatusBadGateway
			if errors.Is(err, context.Canceled) {
				status = fasthttp.StatusRequestTimeout
			}
			writeError(ctx, status, "engine_unavailable", "analysis failed")
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, analysisdto.AnalyzeResponse{
			Score:    res.ScoreCP,
			Mate:     res.MateIn,
			BestMove: res.BestMove,
			Lines:    res.Lines,
			Depth:    res.Depth,
			FEN:      req.FEN,
		})
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	writeJSON(ctx, status, analysisdto.ErrorResponse{Error: msg, Code: code})
}
