package solver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/rpc"
)

// RegisterRPC exposes the service's operations on an RPC server.
func (s *Service) RegisterRPC(srv *rpc.Server) {
	srv.Register(proto.MethodDecompose, s.rpcDecompose)
	srv.Register(proto.MethodDictionaryStats, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return dictionaryStats(s.Dictionary()), nil
	})
	srv.Register(proto.MethodReload, func(ctx context.Context, _ json.RawMessage) (any, error) {
		info, err := s.Reload(ctx)
		if err != nil {
			return proto.ReloadResponse{Success: false, Version: s.Dictionary().Version, Message: err.Error()}, nil
		}
		return proto.ReloadResponse{Success: true, Version: info.Version, Words: info.Words}, nil
	})
	srv.Register(proto.MethodHealth, func(ctx context.Context, _ json.RawMessage) (any, error) {
		status := "SERVING"
		if s.DictionaryCheck()(ctx).Status != health.StatusUp {
			status = "NOT_SERVING"
		}
		return proto.HealthCheckResponse{Status: status}, nil
	})
}

func (s *Service) rpcDecompose(ctx context.Context, raw json.RawMessage) (any, error) {
	var in proto.DecomposeRequest
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	text := []byte(in.Text)
	if in.TextBase64 != "" {
		b, err := base64.StdEncoding.DecodeString(in.TextBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: text_base64: %v", apperrors.ErrInvalidInput, err)
		}
		text = b
	}
	resp, err := s.Decompose(ctx, Request{
		Text:       text,
		Encoding:   in.Encoding,
		MaxWords:   max(in.MaxWords, 0),
		MaxResults: max(in.MaxResults, 0),
	})
	if err != nil {
		return nil, err
	}

	out := proto.DecomposeResponse{
		Results:         resp.Results,
		Count:           resp.Count,
		Truncated:       resp.Truncated,
		TruncatedReason: resp.TruncatedReason,
	}
	if err := remarshal(resp.Debug, &out.Debug); err != nil {
		return nil, err
	}
	if err := remarshal(resp.Stats, &out.Stats); err != nil {
		return nil, err
	}
	return out, nil
}

func dictionaryStats(info DictionaryInfo) proto.DictionaryStatsResponse {
	return proto.DictionaryStatsResponse{
		Words:       info.Words,
		Buckets:     info.Buckets,
		Alphabet:    info.Alphabet,
		Skipped:     info.Skipped,
		LongestWord: info.LongestWord,
		AvgWordLen:  info.AvgWordLen,
		Version:     info.Version,
		Source:      info.Source,
		LoadedAt:    info.LoadedAt.Unix(),
	}
}

func remarshal(in any, out *map[string]any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
