// Package presenter turns session snapshots into the cues and sprites the
// browser renders. Nothing here feeds back into game state.
package presenter

import (
	"github.com/kiliankoe/swgdash/internal/game"
)

type CueKind string

const (
	CueAudio  CueKind = "audio"
	CueVisual CueKind = "visual"
)

type Cue struct {
	Kind CueKind `json:"kind"`
	Name string  `json:"name"`
}

// CuesFor returns the cues to play for the transition that produced snap.
func CuesFor(snap game.Snapshot) []Cue {
	switch snap.Event {
	case game.EventCreated:
		return []Cue{{CueAudio, "intro"}}
	case game.EventStarted:
		return []Cue{{CueAudio, "cutscene"}}
	case game.EventSelected:
		return []Cue{{CueAudio, "cutscene"}, {CueVisual, "cutscene"}}
	case game.EventRevealed:
		var out []Cue
		switch snap.Outcome {
		case game.OutcomeWin:
			out = append(out, Cue{CueAudio, "win"})
		case game.OutcomeLoss:
			out = append(out, Cue{CueAudio, "loss"})
		}
		if snap.Burst {
			out = append(out, Cue{CueVisual, "burst"})
		}
		return out
	case game.EventBurstClear:
		return []Cue{{CueVisual, "burstClear"}}
	}
	return nil
}

type Sprite struct {
	Move     game.Move `json:"id"`
	Name     string    `json:"name"`
	Img      string    `json:"img,omitempty"`
	Fallback string    `json:"fallback"`
}

// SpriteFor resolves the image for m. When has reports the asset missing the
// sprite carries only the fallback glyph.
func SpriteFor(m game.Move, has func(path string) bool) Sprite {
	info := m.Info()
	sp := Sprite{Move: m, Name: info.Name, Fallback: info.Label}
	if has != nil && has(info.Img) {
		sp.Img = info.Img
	}
	return sp
}

func Sprites(has func(path string) bool) []Sprite {
	out := make([]Sprite, 0, 3)
	for _, m := range game.Moves() {
		out = append(out, SpriteFor(m, has))
	}
	return out
}
