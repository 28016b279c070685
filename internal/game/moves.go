package game

import (
	"errors"
	"strings"
)

var ErrInvalidMove = errors.New("invalid move")

type Move string

const (
	MoveSnake Move = "snake"
	MoveWater Move = "water"
	MoveGun   Move = "gun"
)

// MoveInfo is the display metadata the frontend needs for a move.
type MoveInfo struct {
	ID    Move   `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"` // fallback glyph
	Img   string `json:"img"`
}

// cycle is ordered so that every move beats the one after it.
var cycle = [3]Move{MoveSnake, MoveWater, MoveGun}

var catalog = map[Move]MoveInfo{
	MoveSnake: {ID: MoveSnake, Name: "Snake", Label: "🐍", Img: "/assets/snake.gif"},
	MoveWater: {ID: MoveWater, Name: "Water", Label: "💧", Img: "/assets/water.gif"},
	MoveGun:   {ID: MoveGun, Name: "Gun", Label: "︻デ═一", Img: "/assets/gun.gif"},
}

// Moves returns the fixed move set in cycle order.
func Moves() []Move {
	out := make([]Move, len(cycle))
	copy(out, cycle[:])
	return out
}

// Catalog returns display metadata for every move, in cycle order.
func Catalog() []MoveInfo {
	out := make([]MoveInfo, 0, len(cycle))
	for _, m := range cycle {
		out = append(out, catalog[m])
	}
	return out
}

func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMove
	}
	return m, nil
}

func (m Move) Valid() bool {
	_, ok := catalog[m]
	return ok
}

func (m Move) Info() MoveInfo {
	return catalog[m]
}

func (m Move) index() int {
	for i, c := range cycle {
		if c == m {
			return i
		}
	}
	return -1
}

// Beats returns the move m defeats, or "" if m is not a valid move.
func (m Move) Beats() Move {
	i := m.index()
	if i < 0 {
		return ""
	}
	return cycle[(i+1)%len(cycle)]
}

// BeatenBy returns the move that defeats m, or "" if m is not a valid move.
func (m Move) BeatenBy() Move {
	i := m.index()
	if i < 0 {
		return ""
	}
	return cycle[(i+len(cycle)-1)%len(cycle)]
}

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Message is the line shown under the picks once a round is revealed.
func (o Outcome) Message() string {
	switch o {
	case OutcomeWin:
		return "You Won!"
	case OutcomeLoss:
		return "You Lost!"
	case OutcomeDraw:
		return "It's a Draw!"
	}
	return ""
}

// Resolve decides a round from the player's point of view.
func Resolve(player, computer Move) (Outcome, error) {
	if !player.Valid() || !computer.Valid() {
		return "", ErrInvalidMove
	}
	if player == computer {
		return OutcomeDraw, nil
	}
	if computer.Beats() == player {
		return OutcomeLoss, nil
	}
	return OutcomeWin, nil
}
