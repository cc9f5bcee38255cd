package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/themxgroup/launchpad/internal/llm"
)

// payloadID is the payload key holding the record's deterministic string ID.
// Qdrant point IDs must be UUIDs or integers, so the string ID is mapped to
// a UUIDv5 for the point and kept verbatim in the payload.
const payloadID = "id"

// QdrantStore implements Store using Qdrant over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
}

// NewQdrant connects to Qdrant and ensures the collection exists with the
// configured dimensionality and cosine distance.
func NewQdrant(ctx context.Context, host string, port int, collection string, dimension int) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	s := &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   dimension,
	}

	if err := s.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	resp, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: s.collection,
	})
	if err != nil {
		return storeErr("collection lookup", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return storeErr("collection create", err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := map[string]*pb.Value{
			payloadID: {Kind: &pb.Value_StringValue{StringValue: r.ID}},
		}
		for k, v := range r.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Vector}}},
			Payload: payload,
		}
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return 0, storeErr("upsert", err)
	}
	return len(points), nil
}

func (s *QdrantStore) Query(ctx context.Context, vec []float32, topK int) ([]Match, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, storeErr("query", err)
	}

	matches := make([]Match, len(resp.Result))
	for i, pt := range resp.Result {
		id := pt.Id.GetUuid()
		text := ""
		meta := make(map[string]string)
		for k, v := range pt.Payload {
			switch k {
			case payloadID:
				id = v.GetStringValue()
			case MetaText:
				text = v.GetStringValue()
			default:
				meta[k] = v.GetStringValue()
			}
		}
		matches[i] = Match{
			ID:       id,
			Score:    pt.Score,
			Text:     text,
			Metadata: meta,
		}
	}
	return matches, nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

// Ping verifies the collection is reachable. Used by health checks.
func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: s.collection,
	})
	if err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// PointID derives the deterministic qdrant point UUID for a record ID.
// The same record ID always maps to the same point, which is what makes
// Upsert idempotent.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

// storeErr translates gRPC failures into the store's error kinds.
// Connection, auth, and timeout failures mean the index is unreachable;
// throttling is transient and worth retrying; everything else passes
// through with context attached.
func storeErr(op string, err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied, codes.DeadlineExceeded:
			return fmt.Errorf("qdrant %s: %v: %w", op, st.Message(), ErrUnavailable)
		case codes.ResourceExhausted:
			return fmt.Errorf("qdrant %s: %v: %w", op, st.Message(), llm.ErrTransient)
		}
	}
	return fmt.Errorf("qdrant %s: %w", op, err)
}

var _ Store = (*QdrantStore)(nil)
