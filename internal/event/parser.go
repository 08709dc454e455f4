package event

import (
	"strings"
	"time"

	"github.com/andywolf/ralph/internal/topic"
)

const (
	openToken  = "<event "
	closeToken = "</event>"
)

// Parser extracts events and completion sentinels from raw agent output.
type Parser struct {
	// Source, if non-empty, is attached to every event this parser
	// extracts.
	Source HatId
	// Now supplies the timestamp stamped onto each extracted event.
	// Defaults to time.Now when nil.
	Now func() time.Time
}

// NewParser constructs a Parser that attaches source to every event it
// extracts. Pass "" for a parser with no fixed source.
func NewParser(source HatId) *Parser {
	return &Parser{Source: source}
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Parse scans output for `<event topic="..." [target="..."]>payload</event>`
// blocks, in order. Malformed fragments — no closing '>' on the opening
// tag, no matching `</event>`, or a missing topic attribute — are
// skipped by advancing the scan past them; Parse never aborts early and
// always runs in time linear in len(output).
func (p *Parser) Parse(output string) []Event {
	var events []Event
	remaining := output

	for {
		startIdx := strings.Index(remaining, openToken)
		if startIdx < 0 {
			break
		}
		afterStart := remaining[startIdx:]

		tagEnd := strings.IndexByte(afterStart, '>')
		if tagEnd < 0 {
			remaining = remaining[startIdx+len(openToken):]
			continue
		}

		openingTag := afterStart[:tagEnd+1]
		topicAttr, ok := extractAttr(openingTag, "topic")
		if !ok {
			remaining = remaining[startIdx+tagEnd+1:]
			continue
		}
		targetAttr, hasTarget := extractAttr(openingTag, "target")

		contentStart := afterStart[tagEnd+1:]
		closeIdx := strings.Index(contentStart, closeToken)
		if closeIdx < 0 {
			remaining = remaining[startIdx+tagEnd+1:]
			continue
		}

		payload := strings.TrimSpace(contentStart[:closeIdx])

		ev := New(topic.New(topicAttr), payload, p.now())
		if p.Source != "" {
			ev = ev.WithSource(p.Source)
		}
		if hasTarget {
			ev = ev.WithTarget(HatId(targetAttr))
		}
		events = append(events, ev)

		consumed := startIdx + tagEnd + 1 + closeIdx + len(closeToken)
		remaining = remaining[consumed:]
	}

	return events
}

// extractAttr finds attr="value" inside an opening tag and returns its
// value.
func extractAttr(tag, attr string) (string, bool) {
	pattern := attr + `="`
	start := strings.Index(tag, pattern)
	if start < 0 {
		return "", false
	}
	valueStart := start + len(pattern)
	rest := tag[valueStart:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// ContainsPromise reports whether sentinel appears in output outside of
// any <event>...</event> block. Event payloads are stripped first so a
// sentinel mentioned inside a task description never triggers
// completion.
func ContainsPromise(output, sentinel string) bool {
	return strings.Contains(StripEventTags(output), sentinel)
}

// StripEventTags removes every <event ...>...</event> block from output,
// including a trailing block missing its closing tag, leaving only the
// surrounding text. Idempotent: stripping already-stripped output is a
// no-op.
func StripEventTags(output string) string {
	var result strings.Builder
	result.Grow(len(output))
	remaining := output

	for {
		startIdx := strings.Index(remaining, openToken)
		if startIdx < 0 {
			break
		}
		result.WriteString(remaining[:startIdx])

		afterStart := remaining[startIdx:]
		closeIdx := strings.Index(afterStart, closeToken)
		if closeIdx < 0 {
			// Malformed: no closing tag. Not a well-formed block, so
			// it is not something to strip — keep it as plain text
			// and stop scanning.
			result.WriteString(afterStart)
			remaining = ""
			break
		}
		remaining = afterStart[closeIdx+len(closeToken):]
	}

	result.WriteString(remaining)
	return result.String()
}

// BackpressureEvidence is the parsed attestation carried by a build.done
// event's payload.
type BackpressureEvidence struct {
	TestsPassed     bool
	LintPassed      bool
	TypecheckPassed bool
}

// AllPassed reports whether every check attested to passing.
func (b BackpressureEvidence) AllPassed() bool {
	return b.TestsPassed && b.LintPassed && b.TypecheckPassed
}

// ParseBackpressureEvidence parses the "tests: pass / lint: pass /
// typecheck: pass" string protocol out of payload. It returns false if
// none of the three tokens is mentioned at all — a permissive rule that
// treats the mere presence of any one token as sufficient to construct
// evidence, leaving the other two implicitly "not passed".
func ParseBackpressureEvidence(payload string) (BackpressureEvidence, bool) {
	mentionsTests := strings.Contains(payload, "tests:")
	mentionsLint := strings.Contains(payload, "lint:")
	mentionsTypecheck := strings.Contains(payload, "typecheck:")

	if !mentionsTests && !mentionsLint && !mentionsTypecheck {
		return BackpressureEvidence{}, false
	}

	return BackpressureEvidence{
		TestsPassed:     strings.Contains(payload, "tests: pass"),
		LintPassed:      strings.Contains(payload, "lint: pass"),
		TypecheckPassed: strings.Contains(payload, "typecheck: pass"),
	}, true
}
