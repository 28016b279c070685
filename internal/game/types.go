package game

import (
	"strings"
	"time"
)

type Phase string

const (
	PhaseIntro   Phase = "Intro"
	PhasePlaying Phase = "Playing"
)

type Subphase string

const (
	SubphaseNone      Subphase = ""
	SubphaseIdle      Subphase = "Idle"
	SubphaseRevealing Subphase = "Revealing"
)

// Event names the transition that produced a snapshot.
type Event string

const (
	EventCreated    Event = "created"
	EventStarted    Event = "started"
	EventSelected   Event = "selected"
	EventRevealed   Event = "revealed"
	EventBurstClear Event = "burstClear"
	EventPlayAgain  Event = "playAgain"
	EventScoreReset Event = "scoreReset"
)

const ResetMessage = "Scoreboard Reset! Play again."

type SessionConfig struct {
	RevealDelay   time.Duration `json:"revealDelay"`
	BurstDuration time.Duration `json:"burstDuration"`
	HistoryLimit  int           `json:"historyLimit"`
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RevealDelay:   1400 * time.Millisecond,
		BurstDuration: 900 * time.Millisecond,
		HistoryLimit:  50,
	}
}

type Score struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

func (s Score) Total() int {
	return s.Wins + s.Losses + s.Draws
}

func (s *Score) add(o Outcome) {
	switch o {
	case OutcomeWin:
		s.Wins++
	case OutcomeLoss:
		s.Losses++
	case OutcomeDraw:
		s.Draws++
	}
}

type Round struct {
	ID           string    `json:"id"`
	Index        int       `json:"index"`
	PlayerMove   Move      `json:"playerMove"`
	ComputerMove Move      `json:"computerMove"`
	Outcome      Outcome   `json:"outcome"`
	ResultText   string    `json:"resultText"`
	RevealedAt   time.Time `json:"revealedAt"`
}

// Snapshot is the observable state of a session after one transition.
type Snapshot struct {
	Code         string   `json:"sessionCode"`
	Version      uint64   `json:"version"`
	Event        Event    `json:"event"`
	Phase        Phase    `json:"phase"`
	Subphase     Subphase `json:"subphase,omitempty"`
	PlayerPick   Move     `json:"playerPick,omitempty"`
	ComputerPick Move     `json:"computerPick,omitempty"`
	ResultText   string   `json:"resultText"`
	Outcome      Outcome  `json:"outcome,omitempty"`
	Score        Score    `json:"score"`
	Revealing    bool     `json:"isRevealing"`
	Burst        bool     `json:"burst"`
	RoundID      string   `json:"roundId,omitempty"`
	Rounds       int      `json:"rounds"`
}

func resultText(player, computer Move, o Outcome) string {
	return "CPU: " + strings.ToUpper(string(computer)) + " • YOU: " + strings.ToUpper(string(player)) + "\n" + o.Message()
}
