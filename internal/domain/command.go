package domain

import "encoding/json"

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Command string `json:"command"`
}

// HistoryEntry is one executed command as reported by the service.
type HistoryEntry struct {
	Command            string `json:"command"`
	FormattedTimestamp string `json:"formattedTimestamp"`
	CommandType        string `json:"commandType,omitempty"`
}

// CommandResult is the response of POST /command. It is consumed once per
// round-trip and never retained.
type CommandResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	CommandHistory []HistoryEntry  `json:"commandHistory,omitempty"`
	Schedule       json.RawMessage `json:"schedule,omitempty"`
	UpdatedPlan    *Plan           `json:"updatedPlan,omitempty"`
}

// HasSchedule reports whether the result carried a non-null schedule.
func (r *CommandResult) HasSchedule() bool {
	return len(r.Schedule) > 0 && string(r.Schedule) != "null"
}

// ScheduleFile describes a schedule saved by the service.
type ScheduleFile struct {
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp"`
}

// LoadScheduleRequest is the body of POST /schedules/load.
type LoadScheduleRequest struct {
	Filepath string `json:"filepath"`
}

// LoadResult is the response of POST /schedules/load.
type LoadResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Schedule json.RawMessage `json:"schedule,omitempty"`
}
