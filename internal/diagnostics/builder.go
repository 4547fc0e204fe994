package diagnostics

// SearchStats summarises the work a single decomposition performed.
type SearchStats struct {
	Letters     int     `json:"letters"`
	Nodes       int     `json:"nodes"`
	Candidates  int     `json:"candidates"`
	Scanned     int     `json:"scanned"`
	MemoHits    int     `json:"memo_hits"`
	MemoEntries int     `json:"memo_entries"`
	MaxDepth    int     `json:"max_depth"`
	ElapsedMs   float64 `json:"elapsed_ms"`
}

// Response is the wire contract shared by every transport binding.
type Response struct {
	Results         [][]string  `json:"results"`
	Count           int         `json:"count"`
	Truncated       bool        `json:"truncated"`
	TruncatedReason string      `json:"truncated_reason,omitempty"`
	Debug           Record      `json:"debug"`
	Stats           SearchStats `json:"stats"`
}

// Build merges the record unchanged into a response next to the results.
func Build(rec Record, results [][]string, truncated bool, reason string, stats SearchStats) *Response {
	if results == nil {
		results = [][]string{}
	}
	if !truncated {
		reason = ""
	}
	return &Response{
		Results:         results,
		Count:           len(results),
		Truncated:       truncated,
		TruncatedReason: reason,
		Debug:           rec,
		Stats:           stats,
	}
}

// Empty is the response for input that was rejected or had no letters.
func Empty(rec Record) *Response {
	return Build(rec, nil, false, "", SearchStats{})
}
