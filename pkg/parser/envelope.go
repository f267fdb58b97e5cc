package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Prefix expressions shared with format detection.
const (
	// EnvelopeExpr matches "[<timestamp>] <server-id>: ". The server id runs
	// to the first ": ", so "10.0.0.1:27015" is a valid id.
	EnvelopeExpr = `^\[([^\]]+)\]\s+(\S+?):\s+`

	// ServerIDExpr matches a bare "<uuid>: " prefix.
	ServerIDExpr = `^([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}):\s+`

	// GameClockExpr matches the server clock "MM/DD/YYYY - HH:MM:SS".
	GameClockExpr = `\d{2}/\d{2}/\d{4} - \d{2}:\d{2}:\d{2}`
)

var (
	envelopePattern  = regexp.MustCompile(EnvelopeExpr)
	serverIDPattern  = regexp.MustCompile(ServerIDExpr)
	gameClockPattern = regexp.MustCompile(`^(` + GameClockExpr + `(?:\.\d{1,6})?)(?::\s*|\s+-\s+)`)
)

// envelopeLayouts are the ISO 8601 forms accepted in an envelope. Fractional
// seconds are accepted by time.Parse after the seconds field of any of them.
// A timestamp without an offset is UTC.
var envelopeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05",
}

// ParseEnvelopeTime parses an ISO 8601 envelope timestamp.
func ParseEnvelopeTime(s string) (time.Time, error) {
	for _, layout := range envelopeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid envelope timestamp %q", s)
}

// StripEnvelope removes a leading ingestion envelope from line.
// It returns the remaining text and the envelope, or nil when none was present.
// A bracketed prefix whose timestamp is not ISO 8601 is not treated as an envelope.
func StripEnvelope(line string) (string, *Envelope) {
	if m := envelopePattern.FindStringSubmatch(line); m != nil {
		if ts, err := ParseEnvelopeTime(m[1]); err == nil {
			return line[len(m[0]):], &Envelope{ReceivedAt: ts, ServerID: m[2]}
		}
	}

	if m := serverIDPattern.FindStringSubmatch(line); m != nil {
		return line[len(m[0]):], &Envelope{ServerID: m[1]}
	}

	return line, nil
}

// StripGameClock removes the optional "L " marker and server clock that
// prefix native CS2 log lines. It returns the event body and the clock text.
func StripGameClock(line string) (body, clock string) {
	body = line
	if strings.HasPrefix(body, "L ") {
		body = strings.TrimLeft(body[2:], " ")
	}

	if m := gameClockPattern.FindStringSubmatch(body); m != nil {
		return body[len(m[0]):], m[1]
	}

	return body, ""
}
