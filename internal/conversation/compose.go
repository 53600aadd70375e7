package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/planchat/internal/domain"
)

const (
	successGlyph = "✅"
	errorGlyph   = "❌"

	scheduleNotice = "\n\n📅 Schedule Generated!\nUse \"show schedule\" to view details."
)

// IsClearedMessage reports whether a successful command wiped the plan on
// the service side. The service signals this only through its message text;
// this is the single place that knows that.
func IsClearedMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "cleared")
}

// ComposeSuccess builds the bot turn text for a successful command: base
// message, command history, schedule notice, then subject count.
func ComposeSuccess(res *domain.CommandResult) string {
	var b strings.Builder
	b.WriteString(successGlyph + " " + res.Message)

	if res.CommandHistory != nil {
		b.WriteString("\n\n📜 Command History:\n")
		for i, entry := range res.CommandHistory {
			fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, entry.FormattedTimestamp, entry.Command)
		}
	}

	if res.HasSchedule() {
		b.WriteString(scheduleNotice)
	}

	if res.UpdatedPlan != nil && res.UpdatedPlan.Courses != nil {
		fmt.Fprintf(&b, "\n\n📚 Current Subjects: %d", len(res.UpdatedPlan.Courses))
	}

	return b.String()
}

// ComposeApplicationFailure builds the bot turn text for a rejected command.
func ComposeApplicationFailure(message string) string {
	return errorGlyph + " Error: " + message
}

// ComposeTransportFailure builds the bot turn text for a command that never
// got a usable answer.
func ComposeTransportFailure(reason string) string {
	return errorGlyph + " Connection error: " + reason
}

// ComposeScheduleFailure builds the bot turn text for a failed schedule view.
func ComposeScheduleFailure(reason string) string {
	return errorGlyph + " Failed to fetch schedule: " + reason
}

// ComposeScheduleList renders the saved schedules, newest first as the
// service orders them.
func ComposeScheduleList(files []domain.ScheduleFile) string {
	if len(files) == 0 {
		return "📂 No saved schedules yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Saved Schedules (%d):\n", len(files))
	for i, f := range files {
		ts := time.UnixMilli(f.Timestamp).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "\n%d. %s [%s]\n   %s", i+1, f.Filename, ts, f.Path)
	}
	return b.String()
}
