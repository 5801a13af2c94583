package detect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

// Kind classifies an issue.
type Kind int

const (
	KindSlowEvent Kind = iota
	KindInefficientLoop
	KindLongWait
	KindExcessiveVariables
	KindHighFrequency
	KindLoadImpact
)

// Kinds lists every issue kind in declaration order.
var Kinds = []Kind{
	KindSlowEvent,
	KindInefficientLoop,
	KindLongWait,
	KindExcessiveVariables,
	KindHighFrequency,
	KindLoadImpact,
}

// String returns the stable identifier of the kind, e.g. "slow-event".
func (k Kind) String() string {
	switch k {
	case KindSlowEvent:
		return "slow-event"
	case KindInefficientLoop:
		return "inefficient-loop"
	case KindLongWait:
		return "long-wait"
	case KindExcessiveVariables:
		return "excessive-variables"
	case KindHighFrequency:
		return "high-frequency"
	case KindLoadImpact:
		return "load-impact"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// DisplayName returns the human readable name used in reports.
func (k Kind) DisplayName() string {
	switch k {
	case KindSlowEvent:
		return "Slow Event Execution"
	case KindInefficientLoop:
		return "Inefficient Loop"
	case KindLongWait:
		return "Excessive Wait/Delay"
	case KindExcessiveVariables:
		return "Excessive Variable Access"
	case KindHighFrequency:
		return "High Execution Frequency"
	case KindLoadImpact:
		return "Load Impact Detected"
	default:
		return k.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses the identifier returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown issue kind %q", s)
}

// Severity ranks issues. Higher values are more severe.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// Label returns the upper case form shown in reports.
func (s Severity) Label() string {
	return strings.ToUpper(s.String())
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses the identifier returned by Severity.String.
func ParseSeverity(s string) (Severity, error) {
	for sev := SeverityLow; sev <= SeverityCritical; sev++ {
		if strings.EqualFold(s, sev.String()) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Issue is one performance finding.
type Issue struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
	// Record is the metric record that triggered the issue, if any.
	Record *tracker.Stats `json:"record,omitempty"`
}

// Location returns "file:line".
func (i Issue) Location() string {
	return i.File + ":" + strconv.Itoa(i.Line)
}
