package uci

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Analysis is the structured result of one engine search. ScoreCP and MateIn
// are both kept; a present MateIn supersedes the centipawn score everywhere
// downstream.
type Analysis struct {
	ScoreCP  *int
	MateIn   *int
	BestMove string
	Lines    [][]string
	Depth    int
}

var coordMoveRe = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// accumulator folds streamed engine output lines into an Analysis. Lines it
// does not recognize are ignored; only a well-formed bestmove terminates the
// search.
type accumulator struct {
	scoreCP *int
	mateIn  *int
	best    string
	depth   int
	lines   map[int][]string
}

func newAccumulator() *accumulator {
	return &accumulator{lines: make(map[int][]string)}
}

// consume feeds one line to the accumulator and reports whether it was the
// terminal bestmove line.
func (a *accumulator) consume(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "info":
		a.consumeInfo(fields[1:])
		return false
	case "bestmove":
		if len(fields) < 2 || !coordMoveRe.MatchString(fields[1]) {
			return false
		}
		a.best = fields[1]
		return true
	default:
		return false
	}
}

func (a *accumulator) consumeInfo(fields []string) {
	multipv := 1
	var pv []string

	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil && v > a.depth {
					a.depth = v
				}
				i++
			}
		case "multipv":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil && v > 0 {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				if v, err := strconv.Atoi(fields[i+2]); err == nil {
					switch fields[i+1] {
					case "cp":
						cp := v
						a.scoreCP = &cp
					case "mate":
						mate := v
						a.mateIn = &mate
					}
				}
				i += 2
			}
		case "pv":
			pv = fields[i+1:]
			i = len(fields)
		}
	}

	if len(pv) > 0 {
		a.lines[multipv] = append([]string(nil), pv...)
	}
}

func (a *accumulator) result() Analysis {
	keys := make([]int, 0, len(a.lines))
	for k := range a.lines {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	lines := make([][]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, a.lines[k])
	}

	return Analysis{
		ScoreCP:  a.scoreCP,
		MateIn:   a.mateIn,
		BestMove: a.best,
		Lines:    lines,
		Depth:    a.depth,
	}
}
