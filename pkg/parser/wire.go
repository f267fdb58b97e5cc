package parser

import "encoding/json"

// lineResultJSON is the wire shape of a LineResult.
type lineResultJSON struct {
	LineNumber int       `json:"line_number"`
	Content    string    `json:"content"`
	Success    bool      `json:"success"`
	EventType  EventType `json:"event_type,omitempty"`
	EventData  Event     `json:"event_data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// MarshalJSON renders the result as
// {line_number, content, success, event_type?, event_data?, error?}.
func (r LineResult) MarshalJSON() ([]byte, error) {
	w := lineResultJSON{
		LineNumber: r.LineNumber,
		Content:    r.Content,
		Success:    r.Parsed(),
		Error:      r.Error,
	}
	if r.Parsed() {
		w.EventType = r.Event.Type()
		w.EventData = r.Event
	}
	return json.Marshal(w)
}

// MarshalJSON renders the batch as {total_lines, parsed_count, failed_count, results}.
// Results is always an array, never null.
func (b *BatchResult) MarshalJSON() ([]byte, error) {
	results := b.Results
	if results == nil {
		results = []LineResult{}
	}
	return json.Marshal(struct {
		TotalLines  int          `json:"total_lines"`
		ParsedCount int          `json:"parsed_count"`
		FailedCount int          `json:"failed_count"`
		Results     []LineResult `json:"results"`
	}{b.TotalLines, b.ParsedCount, b.FailedCount, results})
}

// EventJSON returns the wire encoding of an event's data.
func EventJSON(e Event) ([]byte, error) {
	return json.Marshal(e)
}
