// Package progress parses the line protocol the collector worker writes to stdout.
//
// A progress line is Prefix immediately followed by a JSON object. Every other
// line, including prefixed lines whose payload does not decode, is plain log text.
package progress

import (
	"encoding/json"
	"strings"
)

const Prefix = "__PROGRESS__"

// PhaseDone is emitted once with the snapshot location when a run completes.
const PhaseDone = "done"

type Event struct {
	Phase      string   `json:"phase"`
	Processed  int      `json:"processed"`
	Total      int      `json:"total"`
	Percent    float64  `json:"percent"`
	Message    string   `json:"message,omitempty"`
	OutputPath string   `json:"outputPath,omitempty"`
	ETASeconds *float64 `json:"etaSeconds,omitempty"`
}

// Line is either a structured Event or plain Text, never both.
type Line struct {
	Event *Event
	Text  string
}

func (l Line) IsEvent() bool {
	return l.Event != nil
}

// Parse classifies one line of worker output. It never fails: anything that is
// not a well-formed event comes back as plain text, unchanged.
func Parse(raw string) Line {
	line := strings.TrimRight(raw, "\r")
	payload, ok := strings.CutPrefix(strings.TrimSpace(line), Prefix)
	if !ok {
		return Line{Text: line}
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Phase == "" {
		return Line{Text: line}
	}

	switch {
	case ev.Percent < 0:
		ev.Percent = 0
	case ev.Percent > 100:
		ev.Percent = 100
	}

	return Line{Event: &ev}
}

// Format renders an event as a protocol line without the trailing newline.
func Format(ev Event) string {
	body, err := json.Marshal(ev)
	if err != nil {
		// Event has no field json cannot encode.
		return Prefix + "{}"
	}
	return Prefix + string(body)
}
