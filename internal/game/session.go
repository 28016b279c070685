package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidPhase     = errors.New("invalid phase for action")
	ErrRevealInProgress = errors.New("reveal in progress")
)

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Production sessions use time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RandomSource picks the computer's move. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option func(*Session)

func WithScheduler(sc Scheduler) Option {
	return func(s *Session) { s.sched = sc }
}

// WithRandom sets the source for computer picks. The source is only used
// while the session lock is held, so it need not be goroutine safe.
func WithRandom(r RandomSource) Option {
	return func(s *Session) { s.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithStaleHook is called with "reveal" or "burst" whenever a timer fires for
// a round that has already been superseded.
func WithStaleHook(fn func(kind string)) Option {
	return func(s *Session) { s.onStale = fn }
}

type Session struct {
	Code      string
	Token     string
	CreatedAt time.Time

	cfg     SessionConfig
	sched   Scheduler
	rng     RandomSource
	now     func() time.Time
	onStale func(kind string)

	mu sync.Mutex

	phase        Phase
	subphase     Subphase
	playerPick   Move
	computerPick Move
	pending      Outcome
	outcome      Outcome
	resultText   string
	score        Score
	burst        bool
	roundID      string
	roundIx      int
	revealed     int
	history      []Round
	lastEvent    Event
	lastActive   time.Time

	// gen changes on every transition that supersedes the current round.
	gen         uint64
	burstGen    uint64
	version     uint64
	revealTimer Timer
	burstTimer  Timer
	closed      bool

	subs    map[int]func(Snapshot)
	nextSub int
	outbox  []Snapshot
	drainMu sync.Mutex
}

func NewSession(code string, cfg SessionConfig, opts ...Option) *Session {
	s := &Session{
		Code:      code,
		cfg:       cfg.withDefaults(),
		sched:     clockScheduler{},
		now:       time.Now,
		phase:     PhaseIntro,
		subphase:  SubphaseNone,
		lastEvent: EventCreated,
		subs:      make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	s.CreatedAt = s.now().UTC()
	s.lastActive = s.CreatedAt
	return s
}

func (c SessionConfig) withDefaults() SessionConfig {
	def := DefaultSessionConfig()
	if c.RevealDelay <= 0 {
		c.RevealDelay = def.RevealDelay
	}
	if c.BurstDuration == 0 {
		c.BurstDuration = def.BurstDuration
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	return c
}

func (s *Session) Config() SessionConfig {
	return s.cfg
}

// Start leaves the intro screen. It is only valid once per session.
func (s *Session) Start() (Snapshot, error) {
	return s.apply(func() (Event, error) {
		if s.phase != PhaseIntro {
			return "", ErrInvalidPhase
		}
		s.invalidateLocked()
		s.phase = PhasePlaying
		s.subphase = SubphaseIdle
		s.clearRoundLocked()
		return EventStarted, nil
	})
}

// SelectMove records the player's pick, draws the computer's pick and
// schedules the reveal. Score and result text only change once the reveal
// timer fires.
func (s *Session) SelectMove(m Move) (Snapshot, error) {
	return s.apply(func() (Event, error) {
		if !m.Valid() {
			return "", ErrInvalidMove
		}
		if s.phase != PhasePlaying {
			return "", ErrInvalidPhase
		}
		if s.subphase == SubphaseRevealing {
			return "", ErrRevealInProgress
		}
		computer := cycle[s.rng.Intn(len(cycle))]
		outcome, err := Resolve(m, computer)
		if err != nil {
			return "", err
		}

		s.invalidateLocked()
		s.roundIx++
		s.roundID = uuid.NewString()
		s.playerPick = m
		s.computerPick = computer
		s.pending = outcome
		s.subphase = SubphaseRevealing

		gen := s.gen
		s.revealTimer = s.sched.AfterFunc(s.cfg.RevealDelay, func() { s.reveal(gen) })
		return EventSelected, nil
	})
}

// PlayAgain clears the table. The score is kept and any pending reveal is
// abandoned.
func (s *Session) PlayAgain() (Snapshot, error) {
	return s.apply(func() (Event, error) {
		if s.phase != PhasePlaying {
			return "", ErrInvalidPhase
		}
		s.invalidateLocked()
		s.clearRoundLocked()
		s.subphase = SubphaseIdle
		return EventPlayAgain, nil
	})
}

func (s *Session) ResetScoreboard() (Snapshot, error) {
	return s.apply(func() (Event, error) {
		if s.phase != PhasePlaying {
			return "", ErrInvalidPhase
		}
		s.invalidateLocked()
		s.clearRoundLocked()
		s.score = Score{}
		s.resultText = ResetMessage
		s.subphase = SubphaseIdle
		return EventScoreReset, nil
	})
}

func (s *Session) reveal(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.subphase != SubphaseRevealing {
		s.mu.Unlock()
		s.stale("reveal")
		return
	}
	s.revealTimer = nil
	s.score.add(s.pending)
	s.outcome = s.pending
	s.pending = ""
	s.resultText = resultText(s.playerPick, s.computerPick, s.outcome)
	s.subphase = SubphaseIdle
	s.revealed++

	s.history = append(s.history, Round{
		ID:           s.roundID,
		Index:        s.roundIx,
		PlayerMove:   s.playerPick,
		ComputerMove: s.computerPick,
		Outcome:      s.outcome,
		ResultText:   s.resultText,
		RevealedAt:   s.now().UTC(),
	})
	if over := len(s.history) - s.cfg.HistoryLimit; over > 0 {
		s.history = append([]Round(nil), s.history[over:]...)
	}

	if s.cfg.BurstDuration > 0 {
		s.burst = true
		s.burstGen++
		bg := s.burstGen
		s.burstTimer = s.sched.AfterFunc(s.cfg.BurstDuration, func() { s.clearBurst(bg) })
	}
	s.commitLocked(EventRevealed)
	s.mu.Unlock()
	s.publish()
}

func (s *Session) clearBurst(bg uint64) {
	s.mu.Lock()
	if s.closed || bg != s.burstGen || !s.burst {
		s.mu.Unlock()
		s.stale("burst")
		return
	}
	s.burstTimer = nil
	s.burst = false
	s.commitLocked(EventBurstClear)
	s.mu.Unlock()
	s.publish()
}

func (s *Session) stale(kind string) {
	log.Debug().Str("code", s.Code).Str("timer", kind).Msg("stale timer ignored")
	if s.onStale != nil {
		s.onStale(kind)
	}
}

// invalidateLocked supersedes the current round so that pending timers
// become no-ops when they fire.
func (s *Session) invalidateLocked() {
	s.gen++
	s.burstGen++
	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}
	if s.burstTimer != nil {
		s.burstTimer.Stop()
		s.burstTimer = nil
	}
	s.burst = false
	s.pending = ""
}

func (s *Session) clearRoundLocked() {
	s.playerPick = ""
	s.computerPick = ""
	s.outcome = ""
	s.resultText = ""
	s.roundID = ""
}

func (s *Session) apply(fn func() (Event, error)) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionNotFound
	}
	ev, err := fn()
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	snap := s.commitLocked(ev)
	s.mu.Unlock()
	s.publish()
	return snap, nil
}

func (s *Session) commitLocked(ev Event) Snapshot {
	s.version++
	s.lastEvent = ev
	s.lastActive = s.now().UTC()
	snap := s.snapshotLocked()
	s.outbox = append(s.outbox, snap)
	log.Debug().Str("code", s.Code).Str("event", string(ev)).Int("round", s.roundIx).Uint64("version", s.version).Msg("session transition")
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Code:         s.Code,
		Version:      s.version,
		Event:        s.lastEvent,
		Phase:        s.phase,
		Subphase:     s.subphase,
		PlayerPick:   s.playerPick,
		ComputerPick: s.computerPick,
		ResultText:   s.resultText,
		Outcome:      s.outcome,
		Score:        s.score,
		Revealing:    s.subphase == SubphaseRevealing,
		Burst:        s.burst,
		RoundID:      s.roundID,
		Rounds:       s.revealed,
	}
}

// publish delivers queued snapshots in commit order. Only one goroutine
// drains at a time; a subscriber that triggers another transition has its
// snapshot picked up by the drain loop already running.
func (s *Session) publish() {
	for {
		if !s.drainMu.TryLock() {
			return
		}
		s.drain()

		s.mu.Lock()
		empty := len(s.outbox) == 0
		s.mu.Unlock()
		if empty {
			return
		}
	}
}

// drain empties the outbox. Caller holds drainMu; drain releases it.
func (s *Session) drain() {
	defer s.drainMu.Unlock()
	for {
		s.mu.Lock()
		batch := s.outbox
		s.outbox = nil
		subs := make([]func(Snapshot), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, snap := range batch {
			for _, fn := range subs {
				s.deliver(fn, snap)
			}
		}
	}
}

// deliver calls one subscriber. A panic is logged and does not stop
// delivery to the others.
func (s *Session) deliver(fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("code", s.Code).Str("event", string(snap.Event)).Interface("panic", r).Msg("subscriber panicked")
		}
	}()
	fn(snap)
}

// Subscribe registers fn for every snapshot committed from now on. The
// returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *Session) History() []Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Round, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close stops pending timers and drops subscribers. Every later transition
// fails with ErrSessionNotFound.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.invalidateLocked()
	s.closed = true
	s.subs = make(map[int]func(Snapshot))
	s.outbox = nil
}
