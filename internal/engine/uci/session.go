// Package uci drives one external UCI-speaking analysis process. A session
// owns exactly one subprocess and accepts at most one in-flight search; the
// protocol carries no request correlation, so callers must never share a
// session across concurrent evaluations.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/fairchess/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultReadyTimeout   = 4 * time.Second
	defaultAnalyzeTimeout = 10 * time.Second
)

// State tracks the session lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateStarting
	StateAwaitingReady
	StateReady
	StateAnalyzing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateReady:
		return "ready"
	case StateAnalyzing:
		return "analyzing"
	case StateTerminated:
		return "terminated"
	default:
		return "uninitialized"
	}
}

// Profile configures engine strength and resources at session start.
type Profile struct {
	Threads       int
	HashMB        int
	MultiPV       int
	SkillLevel    int
	LimitStrength bool
	TargetElo     int
}

func (p Profile) validate() error {
	if p.SkillLevel < 0 || p.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	}
	if p.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	}
	if p.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	}
	if p.LimitStrength && p.TargetElo <= 0 {
		return fmt.Errorf("target elo required when strength is limited")
	}
	return nil
}

var (
	ErrNotReady       = fmt.Errorf("uci: session not ready")
	ErrAnalyzeTimeout = fmt.Errorf("uci: analysis timed out")
)

type lineResult struct {
	line string
	err  error
}

type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lineCh is fed by a single reader goroutine for the whole session
	// lifetime so abandoned reads never race on the pipe.
	lineCh chan lineResult
	done   chan struct{}

	mu        sync.Mutex // guards stdin writes and teardown
	analyze   sync.Mutex // at most one search in flight
	state     atomic.Int32
	closeOnce sync.Once

	timeout time.Duration
}

// NewSession starts the engine binary, performs the UCI handshake, applies
// the strength profile, and waits for readyok before returning.
func NewSession(ctx context.Context, binaryPath string, profile Profile) (*Session, error) {
	if err := profile.validate(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	s := &Session{
		cmd:     cmd,
		stdin:   stdin,
		lineCh:  make(chan lineResult, 64),
		done:    make(chan struct{}),
		timeout: defaultAnalyzeTimeout,
	}
	s.state.Store(int32(StateStarting))

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		s.state.Store(int32(StateTerminated))
		return nil, fmt.Errorf("start engine: %w", err)
	}

	go s.pumpLines(bufio.NewReader(stdoutPipe))

	if err := s.initialize(ctx, profile); err != nil {
		s.Close()
		return nil, err
	}
	s.state.Store(int32(StateReady))
	return s, nil
}

// SetAnalyzeTimeout overrides the per-request search deadline.
func (s *Session) SetAnalyzeTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Analyze evaluates one position to the given depth. A concurrent call
// queues behind the in-flight one. On timeout the subprocess is killed and
// the session becomes Terminated; the owner must build a fresh one.
func (s *Session) Analyze(ctx context.Context, fen string, depth, multiPV int) (Analysis, error) {
	s.analyze.Lock()
	defer s.analyze.Unlock()

	if s.State() != StateReady {
		return Analysis{}, ErrNotReady
	}
	if depth <= 0 {
		return Analysis{}, fmt.Errorf("uci: depth must be > 0: %d", depth)
	}
	s.state.Store(int32(StateAnalyzing))

	if multiPV > 1 {
		if err := s.send(fmt.Sprintf("setoption name MultiPV value %d\n", multiPV)); err != nil {
			return s.fail(fmt.Errorf("send multipv: %w", err))
		}
	}
	if err := s.send(fmt.Sprintf("position fen %s\n", strings.TrimSpace(fen))); err != nil {
		return s.fail(fmt.Errorf("send position: %w", err))
	}
	if err := s.send(fmt.Sprintf("go depth %d\n", depth)); err != nil {
		return s.fail(fmt.Errorf("send go: %w", err))
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	acc := newAccumulator()
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			if ctx.Err() != nil {
				// Caller abandoned the evaluation. Tell the engine to stop
				// and drain its bestmove so the session stays usable.
				_ = s.send("stop\n")
				if s.drainBestmove(acc) {
					s.state.Store(int32(StateReady))
				} else {
					s.Close()
				}
				return Analysis{}, ctx.Err()
			}
			if searchCtx.Err() == context.DeadlineExceeded {
				// The search is stuck; the process is not reusable for
				// this request. Hard reset.
				_ = s.send("stop\n")
				s.Close()
				obslog.L().Warn("uci_analyze_timeout",
					zap.String("fen", fen),
					zap.Int("depth", depth),
					zap.Duration("timeout", s.timeout))
				return Analysis{}, ErrAnalyzeTimeout
			}
			return s.fail(fmt.Errorf("read line: %w", err))
		}
		if line == "" {
			continue
		}
		if acc.consume(line) {
			s.state.Store(int32(StateReady))
			return acc.result(), nil
		}
	}
}

// Stop asks the engine to abandon the current search. The pending Analyze
// still resolves on the engine's bestmove reply.
func (s *Session) Stop() error {
	return s.send("stop\n")
}

// drainBestmove reads for a short grace window after a stop command, looking
// for the terminal bestmove line.
func (s *Session) drainBestmove(acc *accumulator) bool {
	graceCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	for {
		line, err := s.readLine(graceCtx)
		if err != nil {
			return false
		}
		if acc.consume(line) {
			return true
		}
	}
}

func (s *Session) fail(err error) (Analysis, error) {
	s.Close()
	return Analysis{}, err
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Store(int32(StateTerminated))
	s.closeOnce.Do(func() { close(s.done) })

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, profile Profile) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyProfile(profile); err != nil {
		return err
	}

	s.state.Store(int32(StateAwaitingReady))

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyProfile(p Profile) error {
	threadCount := p.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", p.HashMB),
		fmt.Sprintf("setoption name MultiPV value %d\n", p.MultiPV),
		fmt.Sprintf("setoption name Skill Level value %d\n", p.SkillLevel),
	}
	if p.LimitStrength {
		cmds = append(cmds,
			"setoption name UCI_LimitStrength value true\n",
			fmt.Sprintf("setoption name UCI_Elo value %d\n", p.TargetElo),
		)
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply profile: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return ErrNotReady
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

// pumpLines is the session's only stdout reader. It exits when the pipe
// breaks or the session is closed.
func (s *Session) pumpLines(r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		res := lineResult{line: strings.TrimSpace(line), err: err}
		select {
		case s.lineCh <- res:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-s.lineCh:
		return res.line, res.err
	}
}
