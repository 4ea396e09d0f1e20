// Package eval maps raw engine evaluations to win/draw/loss chances and a
// human-facing classification. Everything here is pure and deterministic.
package eval

import (
	"fmt"
	"math"
)

const (
	// Slope of the logistic win-probability curve per centipawn.
	logisticK = 0.004

	// Beyond this the position is treated as completely winning.
	extremeCP = 2000

	// Peak draw share (percent) at dead-equal evaluation, and the Gaussian
	// scale over which it decays.
	drawPeakPct = 4.0
	drawScaleCP = 400.0
)

// Chances is a win/draw/loss triple in whole percent. White + Black + Draw
// always sums to 100 after rounding.
type Chances struct {
	White int `json:"white"`
	Black int `json:"black"`
	Draw  int `json:"draw"`
}

// WinChances converts a white-positive centipawn score, or a forced mate
// distance, into a percentage triple. A present mate supersedes the score.
func WinChances(cp int, mate *int) Chances {
	if mate != nil {
		if *mate >= 0 {
			return Chances{White: 100}
		}
		return Chances{Black: 100}
	}

	if cp > extremeCP {
		return Chances{White: 98, Draw: 2}
	}
	if cp < -extremeCP {
		return Chances{Black: 98, Draw: 2}
	}

	white := 50 + 50*(2/(1+math.Exp(-logisticK*float64(cp)))-1)
	black := 100 - white

	x := float64(cp) / drawScaleCP
	draw := drawPeakPct * math.Exp(-x*x/2)

	white -= draw / 2
	black -= draw / 2

	// Rounding white and black independently keeps the triple exactly
	// mirror-symmetric in cp; the remainder lands on the draw share.
	wi := int(math.Round(white))
	bi := int(math.Round(black))
	return Chances{White: wi, Black: bi, Draw: 100 - wi - bi}
}

// Classification buckets an evaluation by absolute centipawn magnitude.
type Classification string

const (
	ClassBalanced   Classification = "balanced"
	ClassSlightEdge Classification = "slight-advantage"
	ClassAdvantage  Classification = "advantage"
	ClassWinning    Classification = "winning"
	ClassDecisive   Classification = "decisive"
	ClassCrushing   Classification = "crushing"
	ClassForcedMate Classification = "forced-mate"
)

func Classify(cp int, mate *int) Classification {
	if mate != nil {
		return ClassForcedMate
	}
	abs := cp
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < 25:
		return ClassBalanced
	case abs < 50:
		return ClassSlightEdge
	case abs < 100:
		return ClassAdvantage
	case abs < 300:
		return ClassWinning
	case abs < 1000:
		return ClassDecisive
	default:
		return ClassCrushing
	}
}

// FormatScore renders a score the way engine GUIs do: centipawns as signed
// pawns ("+1.50"), forced mates as "#3" or "#-3".
func FormatScore(cp int, mate *int) string {
	if mate != nil {
		return fmt.Sprintf("#%d", *mate)
	}
	return fmt.Sprintf("%+.2f", float64(cp)/100)
}
