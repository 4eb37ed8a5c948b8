// gRPC species service implementation
package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/nainya/redlist/pkg/jsonx"
	"github.com/nainya/redlist/pkg/query"
)

var _ SpeciesServiceServer = (*Server)(nil)

func (s *Server) ListSpecies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	opts := query.SearchOptions{
		Query:    structString(fields, "q"),
		Page:     query.ParsePage(structString(fields, "page")),
		PageSize: query.ParsePageSize(structString(fields, "pageSize")),
		Statuses: query.ParseList(structString(fields, "status")),
		HasImage: query.ParseTriState(structString(fields, "hasImage")),
		Sources:  query.ParseList(structString(fields, "source")),
		Sort:     query.ParseSortKey(structString(fields, "sort")),
	}

	result, err := s.engine.Search(ctx, opts)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "search failed: %v", err)
	}

	return toStruct(query.NewListResponse(result))
}

func (s *Server) GetSpecies(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	slug := req.GetValue()
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}

	doc, err := s.engine.GetBySlug(ctx, slug)
	if errors.Is(err, query.ErrNotFound) {
		return nil, status.Errorf(codes.NotFound, "species %q not found", slug)
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get species: %v", err)
	}

	return toStruct(query.ToDetail(doc))
}

func (s *Server) CorpusStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.corpus.Snapshot(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load corpus: %v", err)
	}

	return toStruct(corpusStatsResponse{
		Path:          snap.Path,
		Documents:     snap.Stats.Documents,
		Fragments:     snap.Stats.Fragments,
		Lines:         snap.Stats.Lines,
		Malformed:     snap.Stats.Malformed,
		Keyless:       snap.Stats.Keyless,
		Inferred:      snap.Stats.Inferred,
		Explicit:      snap.Stats.Explicit,
		LoadedAt:      snap.LoadedAt.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(s.Uptime().Seconds()),
	})
}

type corpusStatsResponse struct {
	Path          string `json:"path"`
	Documents     int    `json:"documents"`
	Fragments     int    `json:"fragments"`
	Lines         int    `json:"lines"`
	Malformed     int    `json:"malformed"`
	Keyless       int    `json:"keyless"`
	Inferred      int    `json:"inferred"`
	Explicit      int    `json:"explicit"`
	LoadedAt      string `json:"loaded_at"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// toStruct converts a JSON-tagged value to a protobuf Struct through its
// JSON encoding, so both transports expose identical field names.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := jsonx.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]interface{}
	if err := jsonx.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// structString reads a request field the way a query string would carry it.
// Lists are joined with commas.
func structString(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	case *structpb.Value_ListValue:
		parts := make([]string, 0, len(k.ListValue.GetValues()))
		for _, item := range k.ListValue.GetValues() {
			parts = append(parts, structString(map[string]*structpb.Value{"": item}, ""))
		}
		return strings.Join(parts, ",")
	}
	return ""
}
