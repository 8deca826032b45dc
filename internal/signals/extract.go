// ABOUTME: Best-effort extraction of structured signals from agent free text
// ABOUTME: Tolerates code fences and surrounding prose; never fails, only classifies

package signals

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultConfidence is used when an entry has no numeric confidence.
const DefaultConfidence = 0.5

// UntitledSignal is stored when an entry has no title.
const UntitledSignal = "Untitled signal"

// Kind classifies the outcome of Extract.
type Kind int

const (
	// Empty means the text was valid JSON holding no usable entries.
	Empty Kind = iota
	// Parsed means at least one entry was extracted.
	Parsed
	// NotJSON means no JSON value could be recovered from the text.
	NotJSON
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Parsed:
		return "parsed"
	case NotJSON:
		return "not_json"
	default:
		return "unknown"
	}
}

// Entry is one normalized signal reported by the agent.
type Entry struct {
	Type       string
	Title      string
	Summary    string
	SourceURL  string
	SourceName string
	Confidence float64
	// Raw is the entry exactly as the agent sent it.
	Raw json.RawMessage
}

// Result is what Extract recovered.
type Result struct {
	Kind    Kind
	Entries []Entry
}

var fencePattern = regexp.MustCompile("^```[\\w]*\\s*\\n?([\\s\\S]*?)\\n?\\s*```\\s*$")

// Extract recovers signal entries from an agent summary. It accepts a bare
// JSON array or an object with a "signals" array, optionally wrapped in a
// markdown code fence or surrounded by prose.
func Extract(summary string) Result {
	text := strings.TrimSpace(summary)
	if text == "" {
		return Result{Kind: Empty}
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
		if text == "" {
			return Result{Kind: Empty}
		}
	}

	if !structured(text) {
		candidate, ok := firstArray(text)
		if !ok {
			return Result{Kind: NotJSON}
		}
		text = candidate
	}

	doc := gjson.Parse(text)
	var list gjson.Result
	switch {
	case doc.IsArray():
		list = doc
	case doc.IsObject():
		list = doc.Get("signals")
	}
	if !list.IsArray() {
		return Result{Kind: Empty}
	}

	var entries []Entry
	list.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			entries = append(entries, entryFrom(item))
		}
		return true
	})
	if len(entries) == 0 {
		return Result{Kind: Empty}
	}
	return Result{Kind: Parsed, Entries: entries}
}

// maxArrayCandidates bounds how many '[' positions firstArray tries.
const maxArrayCandidates = 64

// structured reports whether text is a JSON array or object on its own.
func structured(text string) bool {
	if text[0] != '[' && text[0] != '{' {
		return false
	}
	return gjson.Valid(text)
}

// firstArray scans text for the first '[' that opens a complete JSON array.
// An array holding at least one object wins over earlier arrays without any,
// so a citation like "[1]" ahead of the real list does not hide it.
func firstArray(text string) (string, bool) {
	var fallback string
	offset := 0
	for tries := 0; tries < maxArrayCandidates; tries++ {
		i := strings.IndexByte(text[offset:], '[')
		if i < 0 {
			break
		}
		start := offset + i
		offset = start + 1

		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err != nil {
			continue
		}
		candidate := string(raw)
		if hasObject(gjson.Parse(candidate)) {
			return candidate, true
		}
		if fallback == "" {
			fallback = candidate
		}
		// Skip past the array just decoded.
		offset = start + len(candidate)
	}
	return fallback, fallback != ""
}

func hasObject(list gjson.Result) bool {
	found := false
	list.ForEach(func(_, item gjson.Result) bool {
		found = item.IsObject()
		return !found
	})
	return found
}

func entryFrom(item gjson.Result) Entry {
	e := Entry{
		Type:       stringField(item, "type"),
		Title:      stringField(item, "title"),
		Summary:    stringField(item, "summary"),
		SourceURL:  stringField(item, "sourceUrl"),
		SourceName: stringField(item, "sourceName"),
		Confidence: DefaultConfidence,
		Raw:        json.RawMessage(item.Raw),
	}
	if e.Type == "" {
		e.Type = Uncategorized
	}
	if e.Title == "" {
		e.Title = UntitledSignal
	}
	if c := item.Get("confidence"); c.Type == gjson.Number {
		e.Confidence = clamp(c.Float())
	}
	return e
}

// stringField reads a string value, ignoring values of any other JSON type.
func stringField(item gjson.Result, key string) string {
	v := item.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
