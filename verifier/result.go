package verifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a tri-state verdict. The zero value is FlagUnknown, meaning the
// stage that would have produced it never ran.
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

func flagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// Known reports whether the stage producing f was attempted.
func (f Flag) Known() bool { return f != FlagUnknown }

// True reports f == FlagTrue.
func (f Flag) True() bool { return f == FlagTrue }

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes unknown as null.
func (f Flag) MarshalJSON() ([]byte, error) {
	switch f {
	case FlagTrue:
		return []byte("true"), nil
	case FlagFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b == nil {
		*f = FlagUnknown
		return nil
	}
	*f = flagOf(*b)
	return nil
}

// Stage is a step of the pipeline. Stages are totally ordered.
type Stage int

const (
	StageFormat Stage = iota
	StageDisposable
	StageMX
	StageSMTP
)

var stageNames = [...]string{"FORMAT", "DISPOSABLE", "MX", "SMTP"}

func (s Stage) String() string {
	if s < StageFormat || s > StageSMTP {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if strings.EqualFold(name, string(text)) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// Depth selects how far the pipeline may run.
type Depth int

const (
	DepthQuick Depth = iota
	DepthFull
	DepthDeep
)

// lastStage is the final stage a depth is allowed to run.
func (d Depth) lastStage() Stage {
	switch d {
	case DepthQuick:
		return StageDisposable
	case DepthFull:
		return StageMX
	default:
		return StageSMTP
	}
}

func (d Depth) String() string {
	switch d {
	case DepthQuick:
		return "quick"
	case DepthFull:
		return "full"
	case DepthDeep:
		return "deep"
	default:
		return fmt.Sprintf("Depth(%d)", int(d))
	}
}

func (d Depth) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Depth) UnmarshalText(text []byte) error {
	parsed, err := ParseDepth(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDepth accepts "quick", "full" or "deep", case-insensitively.
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quick":
		return DepthQuick, nil
	case "full":
		return DepthFull, nil
	case "deep":
		return DepthDeep, nil
	}
	return DepthQuick, fmt.Errorf("unknown depth %q", s)
}

// HeuristicCaveat accompanies every deep result.
const HeuristicCaveat = "SMTP mailbox checks are heuristic: catch-all servers accept any recipient and many servers refuse to cooperate with probing"

// Result is the verdict of one verification call.
type Result struct {
	Email        string      `json:"email"`
	Depth        Depth       `json:"depth"`
	ValidFormat  bool        `json:"valid_format"`
	IsDisposable Flag        `json:"is_disposable"`
	HasMX        Flag        `json:"has_mx"`
	MXRecords    []MXRecord  `json:"mx_records"`
	SMTPVerified Flag        `json:"smtp_verified"`
	ReachedStage Stage       `json:"reached_stage"`
	IsValid      bool        `json:"is_valid"`
	Reason       string      `json:"reason"`
	Caveat       string      `json:"caveat,omitempty"`
	Diagnostics  Diagnostics `json:"diagnostics"`

	err error
}

// Diagnostics describe how a verdict was reached. They never change it.
type Diagnostics struct {
	// FreeProvider marks consumer mailbox providers such as gmail.com.
	FreeProvider bool `json:"free_provider,omitempty"`
	// Suggestion is a likely intended address when the domain looks like a
	// typo of a well-known provider.
	Suggestion string `json:"suggestion,omitempty"`

	MXError    string `json:"mx_error,omitempty"`
	SMTPHost   string `json:"smtp_host,omitempty"`
	SMTPState  string `json:"smtp_state,omitempty"`
	SMTPCode   int    `json:"smtp_code,omitempty"`
	SMTPReply  string `json:"smtp_reply,omitempty"`
	SMTPError  string `json:"smtp_error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Err returns nil for a valid result, otherwise an error wrapping the
// sentinel of the stage that failed.
func (r *Result) Err() error {
	return r.err
}
