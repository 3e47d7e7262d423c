package tracing

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer every trace listener obtains from its
// destination.
const TracerName = "github.com/gxo-labs/crossws"

// DefaultRedactKeywords are lower-case key fragments whose values never leave
// the process in span attributes or error messages.
var DefaultRedactKeywords = map[string]struct{}{
	"api_key":   {},
	"apikey":    {},
	"x-api-key": {},
	"password":  {},
	"secret":    {},
	"token":     {},
}

// RedactAttributes returns a copy of attrs in which every attribute whose
// lower-cased key contains one of keywords carries "[REDACTED]".
func RedactAttributes(attrs []attribute.KeyValue, keywords map[string]struct{}) []attribute.KeyValue {
	if len(keywords) == 0 || len(attrs) == 0 {
		return attrs
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		if keyMatches(string(kv.Key), keywords) {
			out = append(out, attribute.String(string(kv.Key), "[REDACTED]"))
			continue
		}
		out = append(out, kv)
	}
	return out
}

func keyMatches(key string, keywords map[string]struct{}) bool {
	lower := strings.ToLower(key)
	for keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RedactSecretsInString replaces whatever follows a sensitive keyword on a
// line with "[REDACTED]". Matching is case-insensitive and line based, so
// "api_key=abc" becomes "api_key=[REDACTED]".
func RedactSecretsInString(input string, keywords map[string]struct{}) string {
	if len(keywords) == 0 || input == "" {
		return input
	}

	redacted := false
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		lowerLine := strings.ToLower(line)
		for keyword := range keywords {
			idx := strings.Index(lowerLine, keyword)
			if idx == -1 {
				continue
			}
			start := idx + len(keyword)
			for start < len(line) && strings.ContainsAny(string(line[start]), ":= '\"") {
				start++
			}
			if start < len(line) {
				lines[i] = line[:start] + "[REDACTED]"
				redacted = true
				break
			}
		}
	}
	if !redacted {
		return input
	}
	return strings.Join(lines, "\n")
}

// RecordErrorWithContext records err on span with its message redacted and
// marks the span as failed. Nil errors and non-recording spans are ignored.
func RecordErrorWithContext(span oteltrace.Span, err error, keywords map[string]struct{}) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	msg := RedactSecretsInString(err.Error(), keywords)
	span.RecordError(errors.New(msg), oteltrace.WithStackTrace(true))
	span.SetStatus(codes.Error, msg)
}
