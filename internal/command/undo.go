package command

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// noteSection matches the trailing "## <date> <time>" section of a notes
// document, up to end of input.
var noteSection = regexp.MustCompile(`\n## \d{4}-\d{2}-\d{2} \d{2}:\d{2}\n[^#]*$`)

// Undo reverses the last execution of a command, structurally rather than
// semantically: it removes the last journal line or notes section without
// ever looking at what the entry says, so it works even when the entry is
// malformed or was written by hand. Returns false when there is nothing to
// undo or the command has no undo.
func Undo(name, agentPath string) bool {
	switch name {
	case "log":
		return undoJournalEntry(agentPath)
	case "listen", "note":
		return undoNoteEntry(agentPath)
	default:
		slog.Warn("cannot undo command", "command", name)
		return false
	}
}

// undoJournalEntry drops the last line of the current month's append-only
// journal file (one JSON record per line).
func undoJournalEntry(agentPath string) bool {
	journal := filepath.Join(agentPath, "food-journal", time.Now().Format("2006-01")+".jsonl")

	data, err := os.ReadFile(journal)
	if err != nil {
		slog.Warn("no journal to undo", "path", journal)
		return false
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		slog.Warn("journal is empty", "path", journal)
		return false
	}

	lines := strings.Split(trimmed, "\n")
	remaining := lines[:len(lines)-1]

	var out string
	if len(remaining) > 0 {
		out = strings.Join(remaining, "\n") + "\n"
	}
	if err := os.WriteFile(journal, []byte(out), 0o644); err != nil {
		slog.Error("failed to rewrite journal", "path", journal, "err", err)
		return false
	}

	slog.Info("undid last journal entry", "path", journal)
	return true
}

// undoNoteEntry removes the last timestamped "## ..." section from the
// agent's notes document.
func undoNoteEntry(agentPath string) bool {
	notes := filepath.Join(agentPath, "notes.md")

	data, err := os.ReadFile(notes)
	if err != nil {
		slog.Warn("no notes to undo", "path", notes)
		return false
	}

	loc := noteSection.FindIndex(data)
	if loc == nil {
		slog.Warn("no note entry found to undo", "path", notes)
		return false
	}

	if err := os.WriteFile(notes, data[:loc[0]], 0o644); err != nil {
		slog.Error("failed to rewrite notes", "path", notes, "err", err)
		return false
	}

	slog.Info("undid last note", "path", notes)
	return true
}
