package engine

import (
	"fmt"
	"strings"

	"github.com/park285/fairchess/internal/engine/uci"
)

// strengthTier is one named difficulty setting for the analysis engine.
type strengthTier struct {
	SkillLevel    int
	LimitStrength bool
	TargetElo     int
}

var strengthTiers = map[string]strengthTier{
	"easy":   {SkillLevel: 3, LimitStrength: true, TargetElo: 800},
	"medium": {SkillLevel: 10, LimitStrength: true, TargetElo: 1500},
	"hard":   {SkillLevel: 17, LimitStrength: true, TargetElo: 2100},
	"max":    {SkillLevel: 20},
}

// TierOverride adjusts individual fields of a named tier, typically from
// the YAML config file.
type TierOverride struct {
	SkillLevel    *int
	LimitStrength *bool
	TargetElo     *int
}

// TierNames lists the known tiers.
func TierNames() []string {
	return []string{"easy", "medium", "hard", "max"}
}

// TierProfile resolves a tier name into a ready-to-use session profile.
func TierProfile(name string, threads, hashMB, multiPV int, override *TierOverride) (uci.Profile, error) {
	tier, ok := strengthTiers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return uci.Profile{}, fmt.Errorf("unknown strength tier %q", name)
	}

	if override != nil {
		if override.SkillLevel != nil {
			tier.SkillLevel = *override.SkillLevel
		}
		if override.LimitStrength != nil {
			tier.LimitStrength = *override.LimitStrength
		}
		if override.TargetElo != nil {
			tier.TargetElo = *override.TargetElo
		}
	}

	if multiPV <= 0 {
		multiPV = 1
	}
	if hashMB <= 0 {
		hashMB = 64
	}

	return uci.Profile{
		Threads:       threads,
		HashMB:        hashMB,
		MultiPV:       multiPV,
		SkillLevel:    tier.SkillLevel,
		LimitStrength: tier.LimitStrength,
		TargetElo:     tier.TargetElo,
	}, nil
}
