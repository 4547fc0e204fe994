// Package proto defines the message types carried by the JSON-over-TCP RPC
// layer (see pkg/rpc). Field names match the HTTP API's JSON.
package proto

const (
	MethodDecompose       = "AnagramService.Decompose"
	MethodDictionaryStats = "AnagramService.DictionaryStats"
	MethodReload          = "AnagramService.ReloadDictionary"
	MethodHealth          = "AnagramService.Health"
)

// DecomposeRequest carries the input either as text or, for bytes that are
// not UTF-8, base64 encoded. Zero limits use the server defaults.
type DecomposeRequest struct {
	Text       string `json:"text,omitempty"`
	TextBase64 string `json:"text_base64,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	MaxWords   int    `json:"max_words,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// DecomposeResponse is the RPC view of a solve. Debug carries the same
// diagnostic record the HTTP API returns.
type DecomposeResponse struct {
	Results         [][]string     `json:"results"`
	Count           int            `json:"count"`
	Truncated       bool           `json:"truncated"`
	TruncatedReason string         `json:"truncated_reason,omitempty"`
	Debug           map[string]any `json:"debug"`
	Stats           map[string]any `json:"stats"`
}

type DictionaryStatsRequest struct{}

type DictionaryStatsResponse struct {
	Words       int     `json:"words"`
	Buckets     int     `json:"buckets"`
	Alphabet    int     `json:"alphabet"`
	Skipped     int     `json:"skipped"`
	LongestWord int     `json:"longest_word"`
	AvgWordLen  float64 `json:"avg_word_len"`
	Version     uint64  `json:"version"`
	Source      string  `json:"source"`
	LoadedAt    int64   `json:"loaded_at"`
}

type ReloadRequest struct{}

type ReloadResponse struct {
	Success bool   `json:"success"`
	Version uint64 `json:"version"`
	Words   int    `json:"words"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResponse mirrors the gRPC health check states.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}
