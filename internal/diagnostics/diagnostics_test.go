package diagnostics

import (
	"encoding/json"
	"testing"
)

func TestNewSubValidUTF8(t *testing.T) {
	sub := NewSub([]byte("של"), true)
	if sub.Length != 4 {
		t.Errorf("Length = %d, want 4 bytes", sub.Length)
	}
	if sub.Characters != 2 {
		t.Errorf("Characters = %d, want 2", sub.Characters)
	}
	if sub.Bytes != "d7 a9 d7 9c" {
		t.Errorf("Bytes = %q", sub.Bytes)
	}
	if sub.Original != "של" || !sub.IsValidEncoding {
		t.Errorf("unexpected sub %+v", sub)
	}
}

func TestNewSubInvalidBytes(t *testing.T) {
	sub := NewSub([]byte{0xd7, 0xff, 'a'}, false)
	if sub.Original != "�a" && sub.Original != "��a" {
		t.Errorf("Original = %q", sub.Original)
	}
	if sub.IsValidEncoding || sub.IsUTF8 {
		t.Error("expected invalid")
	}
	if sub.Length != 3 || sub.Bytes != "d7 ff 61" {
		t.Errorf("unexpected sub %+v", sub)
	}
}

func TestEmptySub(t *testing.T) {
	sub := NewSub(nil, true)
	if sub.Length != 0 || sub.Characters != 0 || sub.Bytes != "" || sub.Original != "" {
		t.Errorf("unexpected sub %+v", sub)
	}
}

func TestBuildKeepsRecordAndNeverNull(t *testing.T) {
	rec := Record{Encoding: "utf-8", Raw: NewSub([]byte("x"), true), Decoded: NewTextSub("x", true)}
	resp := Build(rec, nil, false, "max_results", SearchStats{})
	if resp.Results == nil {
		t.Fatal("results must be an empty list, not nil")
	}
	if resp.TruncatedReason != "" {
		t.Error("reason must be dropped when not truncated")
	}
	if resp.Debug != rec {
		t.Error("record must be merged unchanged")
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if _, ok := wire["results"].([]any); !ok {
		t.Errorf("results serialised as %T", wire["results"])
	}
	debug := wire["debug"].(map[string]any)
	if _, ok := debug["error"]; ok {
		t.Error("error must be omitted when empty")
	}
	raw := debug["raw"].(map[string]any)
	for _, field := range []string{"original", "is_valid_encoding", "is_utf8", "length", "bytes"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("raw.%s missing", field)
		}
	}
}

func TestBuildTruncated(t *testing.T) {
	resp := Build(Record{}, [][]string{{"של", "לום"}}, true, "max_results", SearchStats{Nodes: 3})
	if !resp.Truncated || resp.TruncatedReason != "max_results" || resp.Count != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
}
