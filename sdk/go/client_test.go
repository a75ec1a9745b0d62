package caseflowsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBoard() Board {
	return Board{
		Total: 2,
		Columns: []Column{
			{Stage: Stage{ID: "s1", Name: "Consulta Inicial", Position: 1}, Count: 2, Cards: []Card{
				{CaseID: "c1", ClientName: "Maria", StageID: "s1"},
				{CaseID: "c2", ClientName: "João", StageID: "s1"},
			}},
			{Stage: Stage{ID: "s2", Name: "Protocolado", Position: 2}, Count: 0, Cards: []Card{}},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error": map[string]any{"code": "persistence_unavailable", "message": "storage temporarily unavailable; retry"},
	})
}

func TestClientSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/v0/board", r.URL.Path)
		assert.Equal(t, "urgent", r.URL.Query().Get("priority"))
		writeJSON(w, http.StatusOK, testBoard())
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "secret"
	b, err := c.Board(context.Background(), Filters{Priority: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Total)
}

func TestClientRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			unavailable(w)
			return
		}
		writeJSON(w, http.StatusOK, []Stage{{ID: "s1", Name: "Consulta Inicial", Position: 1}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.OwnerID = "lawyer-1"
	stages, err := c.ListStages(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "not_found", "message": "case c9 not found"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).MoveCase(context.Background(), "c9", "s2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.False(t, apiErr.Retryable())
	assert.EqualValues(t, 1, calls.Load())
}

func TestOptimisticMoveCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/board":
			writeJSON(w, http.StatusOK, testBoard())
		case "/v0/cases/c1/move":
			writeJSON(w, http.StatusOK, Transition{
				From:       Stage{ID: "s1"},
				To:         Stage{ID: "s2"},
				Assignment: Assignment{CaseID: "c1", StageID: "s2", Priority: "medium"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ob := NewOptimisticBoard(New(srv.URL), Filters{})
	require.NoError(t, ob.Refresh(context.Background()))
	tr, err := ob.Move(context.Background(), "c1", "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", tr.To.ID)

	snap := ob.Snapshot()
	assert.Equal(t, 1, snap.Columns[0].Count)
	require.Len(t, snap.Columns[1].Cards, 1)
	assert.Equal(t, "c1", snap.Columns[1].Cards[0].CaseID)
	assert.True(t, snap.Columns[1].Cards[0].Assigned)
}

func TestOptimisticMoveRollsBack(t *testing.T) {
	moveSeen := make(chan Board, 1)
	var ob *OptimisticBoard
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/board":
			writeJSON(w, http.StatusOK, testBoard())
		case "/v0/cases/c2/move":
			// The local board already shows the move while the request is in flight.
			moveSeen <- ob.Snapshot()
			unavailable(w)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.RetryFor = 0
	ob = NewOptimisticBoard(c, Filters{})
	require.NoError(t, ob.Refresh(context.Background()))
	before := ob.Snapshot()

	_, err := ob.Move(context.Background(), "c2", "s2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Retryable())

	select {
	case during := <-moveSeen:
		assert.Equal(t, 1, during.Columns[1].Count)
	case <-time.After(time.Second):
		t.Fatal("move request never reached the server")
	}
	assert.Equal(t, before, ob.Snapshot())
}

func TestOptimisticMoveUnknownCase(t *testing.T) {
	ob := NewOptimisticBoard(New("http://127.0.0.1:0"), Filters{})
	_, err := ob.Move(context.Background(), "nope", "s2")
	assert.Error(t, err)
}
