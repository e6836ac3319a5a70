package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newTestStore(t *testing.T, respond func(r recordedRequest, w http.ResponseWriter)) (*Store, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		recorded = append(recorded, rec)
		if respond != nil {
			respond(rec, w)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL, Collection: "docs"}), &recorded
}

func TestInit_RecreatesCollection(t *testing.T) {
	s, recorded := newTestStore(t, nil)

	require.NoError(t, s.Init(context.Background(), 3))
	require.Len(t, *recorded, 2)

	del := (*recorded)[0]
	assert.Equal(t, http.MethodDelete, del.method)
	assert.Equal(t, "/collections/docs", del.path)

	put := (*recorded)[1]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/collections/docs", put.path)
	vectors := put.body["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestInit_InvalidDimension(t *testing.T) {
	s, _ := newTestStore(t, nil)
	assert.Error(t, s.Init(context.Background(), 0))
}

func TestUpsert_PointsCarryChunkPayload(t *testing.T) {
	s, recorded := newTestStore(t, nil)

	chunks := []domain.Chunk{
		{ID: "sess:0", SessionID: "sess", Index: 0, Text: "alpha", Start: 0, End: 5},
		{ID: "sess:1", SessionID: "sess", Index: 1, Text: "beta", Start: 3, End: 7},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}
	require.NoError(t, s.Upsert(context.Background(), chunks, vectors))

	require.Len(t, *recorded, 1)
	req := (*recorded)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/collections/docs/points", req.path)
	assert.Equal(t, "wait=true", req.query)

	points := req.body["points"].([]any)
	require.Len(t, points, 2)
	p0 := points[0].(map[string]any)
	assert.Equal(t, float64(0), p0["id"])
	payload := p0["payload"].(map[string]any)
	assert.Equal(t, "sess:0", payload["chunk_id"])
	assert.Equal(t, "alpha", payload["text"])
}

func TestUpsert_LengthMismatch(t *testing.T) {
	s, _ := newTestStore(t, nil)
	err := s.Upsert(context.Background(), []domain.Chunk{{}}, nil)
	assert.Error(t, err)
}

func TestSearch_MapsPayloadToChunks(t *testing.T) {
	s, _ := newTestStore(t, func(r recordedRequest, w http.ResponseWriter) {
		if r.path != "/collections/docs/points/search" {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
			return
		}
		assert.Equal(t, float64(2), r.body["limit"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.92, "payload": map[string]any{
					"chunk_id": "sess:1", "session_id": "sess", "index": 1,
					"text": "beta", "start": 3, "end": 7,
				}},
				{"score": 0.4, "payload": map[string]any{
					"chunk_id": "sess:0", "session_id": "sess", "index": 0,
					"text": "alpha", "start": 0, "end": 5,
				}},
			},
		})
	})

	got, err := s.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sess:1", got[0].Chunk.ID)
	assert.Equal(t, 1, got[0].Chunk.Index)
	assert.Equal(t, "beta", got[0].Chunk.Text)
	assert.Equal(t, 3, got[0].Chunk.Start)
	assert.InDelta(t, 0.92, got[0].Score, 1e-9)
	assert.Equal(t, "sess:0", got[1].Chunk.ID)
}

func TestSearch_ServerError(t *testing.T) {
	s, _ := newTestStore(t, func(_ recordedRequest, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := s.Search(context.Background(), []float32{1}, 1)
	assert.Error(t, err)
}
