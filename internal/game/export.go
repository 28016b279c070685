package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportRound appends a completed round to a plain text log. The log is
// write-only; sessions are never restored from it.
func ExportRound(filename, code string, r Round, score Score) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder

	// New session header on the first round
	if !fileExists || r.Index == 1 {
		if fileExists {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Snake Water Gun - Session %s\n", code))
		sb.WriteString(strings.Repeat("=", 40) + "\n")
	}

	sb.WriteString(fmt.Sprintf("Round %d [%s] %s\n", r.Index, r.RevealedAt.Format("2006-01-02 15:04:05"), r.Outcome))
	sb.WriteString(fmt.Sprintf("  %s\n", strings.ReplaceAll(r.ResultText, "\n", " / ")))
	sb.WriteString(fmt.Sprintf("  Wins %d  Losses %d  Draws %d\n", score.Wins, score.Losses, score.Draws))

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
