// Package conversation keeps the human-readable transcript: one markdown
// file per day with timestamped exchange sections. The files double as
// the data source for the repeat command and the chat history API.
package conversation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Log reads and appends daily transcripts under one directory.
type Log struct {
	Dir string
	// UserName labels the user's lines, "You" unless configured.
	UserName string
}

func NewLog(dir, userName string) *Log {
	if userName == "" {
		userName = "You"
	}
	return &Log{Dir: dir, UserName: userName}
}

// Append writes one exchange to today's file. Source tags where the
// utterance came from ("voice", "chat"); empty omits the tag.
func (l *Log) Append(userText, assistantText, thinkingText, source string) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.Dir, time.Now().Format("2006-01-02")+".md")

	marker := ""
	if source != "" {
		marker = " [" + source + "]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s%s\n**%s:** %s\n\n", time.Now().Format("15:04"), marker, l.UserName, userText)
	if thinkingText != "" {
		fmt.Fprintf(&b, "**Agent thinking:** %s\n\n", thinkingText)
	}
	fmt.Fprintf(&b, "**Agent:** %s\n", assistantText)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

var (
	sectionRe  = regexp.MustCompile(`(?m)^## (\d{1,2}:\d{2}).*$`)
	agentRe    = regexp.MustCompile(`(?s)\*\*Agent:\*\* (.+?)(?:\n## |\n\*\*Agent thinking:\*\*|$)`)
	thinkingRe = regexp.MustCompile(`(?s)\*\*Agent thinking:\*\* (.+?)(?:\n\n\*\*Agent:\*\*|\n\*\*Agent:\*\*|$)`)
)

func (l *Log) userRe() *regexp.Regexp {
	return regexp.MustCompile(`(?s)\*\*` + regexp.QuoteMeta(l.UserName) + `:\*\* (.+?)(?:\n\n\*\*Agent|\n\*\*Agent|$)`)
}

// LastAgentResponse returns the most recent agent line from today's
// transcript, "" when there is none. Backs the repeat command.
func (l *Log) LastAgentResponse() string {
	path := filepath.Join(l.Dir, time.Now().Format("2006-01-02")+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	matches := agentRe.FindAllStringSubmatch(string(content), -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// Message is one parsed transcript entry.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Thinking  string `json:"thinking,omitempty"`
	Timestamp string `json:"timestamp"`

	iso string
}

// Messages parses one day's transcript into ordered messages.
func (l *Log) Messages(date string) []Message {
	path := filepath.Join(l.Dir, date+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var messages []Message
	userRe := l.userRe()

	text := string(content)
	headers := sectionRe.FindAllStringSubmatchIndex(text, -1)
	for i, hdr := range headers {
		timestamp := text[hdr[2]:hdr[3]]
		start := hdr[1]
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		section := text[start:end]
		iso := date + "T" + padClock(timestamp) + ":00"

		if m := userRe.FindStringSubmatch(section); m != nil {
			messages = append(messages, Message{
				Role: "user", Content: strings.TrimSpace(m[1]),
				Timestamp: timestamp, iso: iso,
			})
		}
		thinking := ""
		if m := thinkingRe.FindStringSubmatch(section); m != nil {
			thinking = strings.TrimSpace(m[1])
		}
		if m := agentRe.FindStringSubmatch(section); m != nil {
			messages = append(messages, Message{
				Role: "assistant", Content: strings.TrimSpace(m[1]),
				Thinking: thinking, Timestamp: timestamp, iso: iso,
			})
		}
	}
	return messages
}

// Recent merges the last n days of messages, oldest first.
func (l *Log) Recent(days int) []Message {
	var all []Message
	today := time.Now()
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		all = append(all, l.Messages(date)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].iso < all[j].iso })
	return all
}

// Summary describes one day's transcript for listings.
type Summary struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Preview string `json:"preview"`
	Agent   string `json:"agent"`
}

var dateFileRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)

// List returns day summaries, newest first. The agent name is stamped on
// each entry by the caller.
func (l *Log) List(agent string) []Summary {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !dateFileRe.MatchString(e.Name()) {
			continue
		}
		date := strings.TrimSuffix(e.Name(), ".md")
		out = append(out, Summary{
			ID:      date,
			Date:    date,
			Preview: l.Preview(date, 100),
			Agent:   agent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Preview is the last user line of a day's transcript, truncated.
func (l *Log) Preview(date string, maxLen int) string {
	msgs := l.Messages(date)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			p := msgs[i].Content
			if len(p) > maxLen {
				p = p[:maxLen]
			}
			return p
		}
	}
	return ""
}

func padClock(ts string) string {
	if len(ts) == 4 { // "9:05"
		return "0" + ts
	}
	return ts
}
