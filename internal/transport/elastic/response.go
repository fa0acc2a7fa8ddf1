package elastic

import (
	"encoding/json"
	"fmt"
)

// Total is the hit count. Newer engines report {"value": N, "relation": ...};
// older ones report a bare number. Both decode into the same shape.
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

func (t *Total) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '{' {
		t.Relation = "eq"
		return json.Unmarshal(data, &t.Value)
	}
	type alias Total
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("decode total: %w", err)
	}
	*t = Total(a)
	return nil
}

// Hit is one search result.
type Hit struct {
	Index     string              `json:"_index"`
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight"`
}

// Hits is the result envelope.
type Hits struct {
	Total Total `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Response is a decoded search response.
type Response struct {
	Took         int             `json:"took"`
	TimedOut     bool            `json:"timed_out"`
	Hits         Hits            `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

// BulkItemDetail is the engine's per-action report.
type BulkItemDetail struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// OK reports whether the action succeeded. Deleting a missing document
// counts as success: the desired state holds either way.
func (d BulkItemDetail) OK(op string) bool {
	if d.Status >= 200 && d.Status < 300 {
		return true
	}
	return op == "delete" && d.Status == 404
}

// Reason returns the failure reason, if any.
func (d BulkItemDetail) Reason() string {
	if d.Error == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", d.Error.Type, d.Error.Reason)
}

// BulkResult is a decoded bulk response.
type BulkResult struct {
	Took   int                         `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]BulkItemDetail `json:"items"`
}
