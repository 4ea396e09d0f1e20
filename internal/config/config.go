package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	AnalysisURL   string
	StockfishPath string

	EngineProfile string
	EngineDepth   int
	EngineThreads int
	EngineHashMB  int
	EvalTimeoutMS int

	MaxEvaluationCP int
	MaxAttempts     int

	RedisURL string

	ListenAddr string

	Profiles  map[string]ProfileOverride
	Fairness  FairnessToggles
	MultiPV   int
	RecentTTL int
}

// ProfileOverride tunes one named strength tier from the YAML file.
type ProfileOverride struct {
	SkillLevel    *int  `yaml:"skillLevel"`
	LimitStrength *bool `yaml:"limitStrength"`
	TargetElo     *int  `yaml:"targetElo"`
}

type FairnessToggles struct {
	KingsNotInCheck          bool `yaml:"kingsNotInCheck"`
	BishopsOnDifferentColors bool `yaml:"bishopsOnDifferentColors"`
	NoStalemate              bool `yaml:"noStalemate"`
	EvaluationWithinRange    bool `yaml:"evaluationWithinRange"`
}

type fileConfig struct {
	Profiles map[string]ProfileOverride `yaml:"profiles"`
	Fairness *FairnessToggles           `yaml:"fairness"`
	MaxEval  *int                       `yaml:"maxEvaluationCentipawns"`
	Depth    *int                       `yaml:"engineDepth"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EngineProfile:   "max",
		EngineDepth:     12,
		EngineThreads:   2,
		EngineHashMB:    64,
		EvalTimeoutMS:   10000,
		MaxEvaluationCP: 50,
		MaxAttempts:     0,
		ListenAddr:      ":8085",
		MultiPV:         1,
		RecentTTL:       3600,
		Fairness: FairnessToggles{
			KingsNotInCheck:          true,
			BishopsOnDifferentColors: true,
			NoStalemate:              true,
			EvaluationWithinRange:    true,
		},
	}

	cfg.AnalysisURL = strings.TrimSpace(os.Getenv("ANALYSIS_URL"))
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if v := strings.TrimSpace(os.Getenv("ENGINE_PROFILE")); v != "" {
		cfg.EngineProfile = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalTimeoutMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_EVAL_CP")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxEvaluationCP = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GEN_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_MULTIPV")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MultiPV = n
		}
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if len(fc.Profiles) > 0 {
		c.Profiles = fc.Profiles
	}
	if fc.Fairness != nil {
		c.Fairness = *fc.Fairness
	}
	if fc.MaxEval != nil && *fc.MaxEval > 0 {
		c.MaxEvaluationCP = *fc.MaxEval
	}
	if fc.Depth != nil && *fc.Depth > 0 {
		c.EngineDepth = *fc.Depth
	}
	return nil
}
