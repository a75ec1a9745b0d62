package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"caseflow/internal/board"
	"caseflow/internal/config"
	"caseflow/internal/db"
	"caseflow/internal/domain"
	"caseflow/internal/engine"
	"caseflow/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	engine engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	e := engine.New(conn, config.Default(), zap.NewNop())
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testSecret, AllowOwnerHeader: true},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return &testServer{Server: srv, engine: e}
}

func ownerHeader(owner string) map[string]string {
	return map[string]string{"X-Owner-Id": owner}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env.Error.Code
}

// seedPipeline creates the default stages and two cases for owner.
func seedPipeline(t *testing.T, srv *testServer, owner string) []domain.Stage {
	t.Helper()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages/defaults", nil, ownerHeader(owner))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	seeded := decode[SeedStagesResponse](t, data)
	require.True(t, seeded.Created)
	require.Len(t, seeded.Stages, 12)

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/cases", map[string]any{
		"cases": []map[string]any{
			{"id": "case-1", "client_id": "cli-1", "client_name": "Maria Souza", "opposing_party": "Banco Sul", "process_number": "0001234-55.2024", "action_type": "trabalhista"},
			{"id": "case-2", "client_id": "cli-2", "client_name": "João Lima", "action_type": "civel"},
		},
	}, ownerHeader(owner))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	return seeded.Stages
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, data))

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "invalid_credentials", errorCode(t, data))
}

func TestBearerTokenScopesOwner(t *testing.T) {
	srv := newTestServer(t)
	seedPipeline(t, srv, "lawyer-1")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "lawyer-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	stages := decode[[]domain.Stage](t, data)
	require.Len(t, stages, 12)
	assert.Equal(t, "Consulta Inicial", stages[0].Name)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, ownerHeader("lawyer-2"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Empty(t, decode[[]domain.Stage](t, data))
}

func TestAPIKeyScopesOwner(t *testing.T) {
	srv := newTestServer(t)
	seedPipeline(t, srv, "lawyer-1")
	plain, _, err := srv.engine.CreateAPIKey(context.Background(), "lawyer-1", "ci")
	require.NoError(t, err)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/cases", nil, map[string]string{"X-Api-Key": plain})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Len(t, decode[[]CaseResponse](t, data), 2)

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/cases", nil, map[string]string{"X-Api-Key": "cf_wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestMoveCaseRecordsActivity(t *testing.T) {
	srv := newTestServer(t)
	stages := seedPipeline(t, srv, "lawyer-1")
	client := srv.Client()
	h := ownerHeader("lawyer-1")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/case-1/move", map[string]any{"stage_id": stages[6].ID}, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	moved := decode[TransitionResponse](t, data)
	assert.Equal(t, stages[0].ID, moved.From.ID)
	assert.Equal(t, stages[6].ID, moved.To.ID)
	assert.Equal(t, stages[6].ID, moved.Assignment.StageID)
	assert.Equal(t, "medium", moved.Assignment.Priority)
	assert.Equal(t, domain.ActivityStageChange, moved.Activity.ActivityType)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/case-1/activities", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	acts := decode[[]domain.Activity](t, data)
	require.Len(t, acts, 1)
	assert.Equal(t, `Moved from "Consulta Inicial" to "Aguardando Citação"`, acts[0].Description)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/board", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	b := decode[board.Board](t, data)
	require.Len(t, b.Columns, 12)
	assert.Equal(t, 1, b.Columns[0].Count)
	assert.Equal(t, 1, b.Columns[6].Count)
	assert.Equal(t, "case-1", b.Columns[6].Cards[0].CaseID)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	stages := seedPipeline(t, srv, "lawyer-1")
	client := srv.Client()
	h := ownerHeader("lawyer-1")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/missing/move", map[string]any{"stage_id": stages[1].ID}, h)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, data))

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/stages/"+stages[0].ID, nil, h)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, "protected_stage", errorCode(t, data))

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages", map[string]any{"name": "   "}, h)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "bad_request", errorCode(t, data))

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/stages/reorder", map[string]any{"stage_ids": []string{stages[0].ID}}, h)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "bad_request", errorCode(t, data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/board?priority=critical", nil, h)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "bad_request", errorCode(t, data))

	for _, path := range []string{"/v0/cases/missing/tasks", "/v0/cases/missing/activities"} {
		res, data = doJSON(t, client, http.MethodGet, srv.URL+path, nil, h)
		assert.Equal(t, http.StatusNotFound, res.StatusCode, path)
		assert.Equal(t, "not_found", errorCode(t, data), path)
	}
	for _, path := range []string{"/v0/cases/case-1/tasks", "/v0/cases/case-1/activities"} {
		res, _ = doJSON(t, client, http.MethodGet, srv.URL+path, nil, ownerHeader("lawyer-3"))
		assert.Equal(t, http.StatusNotFound, res.StatusCode, path)
	}
}

func TestStorageFailureIsRetryable(t *testing.T) {
	srv := newTestServer(t)
	seedPipeline(t, srv, "lawyer-1")
	require.NoError(t, srv.engine.DB.Close())

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stages", nil, ownerHeader("lawyer-1"))
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, "persistence_unavailable", errorCode(t, data))
}

func TestCustomStageLifecycle(t *testing.T) {
	srv := newTestServer(t)
	stages := seedPipeline(t, srv, "lawyer-1")
	client := srv.Client()
	h := ownerHeader("lawyer-1")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/stages", map[string]any{"name": "Perícia", "position": 3, "color": "#123456"}, h)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	custom := decode[domain.Stage](t, data)
	assert.Equal(t, 3, custom.Position)
	assert.False(t, custom.IsDefault)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/stages/"+custom.ID, map[string]any{"name": "Perícia Técnica"}, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "Perícia Técnica", decode[domain.Stage](t, data).Name)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/case-2/move", map[string]any{"stage_id": custom.ID}, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/stages/"+custom.ID, nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	deleted := decode[engine.StageDeletion](t, data)
	require.NotNil(t, deleted.ReassignedTo)
	assert.Equal(t, stages[0].ID, deleted.ReassignedTo.ID)
	require.Len(t, deleted.Activities, 1)
	assert.Equal(t, domain.ActivityStageReassigned, deleted.Activities[0].ActivityType)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/stages", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	after := decode[[]domain.Stage](t, data)
	require.Len(t, after, 12)
	for i, s := range after {
		assert.Equal(t, i+1, s.Position)
	}
}

func TestAssignmentPatchAndClear(t *testing.T) {
	srv := newTestServer(t)
	stages := seedPipeline(t, srv, "lawyer-1")
	client := srv.Client()
	h := ownerHeader("lawyer-1")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/case-1/assignment", nil, h)
	assert.Equal(t, http.StatusNotFound, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/cases/case-1/assignment", map[string]any{
		"priority": "urgent",
		"due_date": "2024-07-15",
		"notes":    "call client",
	}, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	written := decode[AssignmentWriteResponse](t, data)
	assert.Nil(t, written.Transition)
	assert.Equal(t, stages[0].ID, written.Assignment.StageID)
	assert.Equal(t, "urgent", written.Assignment.Priority)
	require.NotNil(t, written.Assignment.DueDate)
	assert.Equal(t, "2024-07-15", *written.Assignment.DueDate)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/board/calendar?month=2024-07", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	days := decode[[]board.Day](t, data)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-07-15", days[0].Date)

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/cases/case-1/assignment", map[string]any{
		"due_date": nil,
		"stage_id": stages[2].ID,
	}, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	written = decode[AssignmentWriteResponse](t, data)
	assert.Nil(t, written.Assignment.DueDate)
	require.NotNil(t, written.Assignment.Notes)
	assert.Equal(t, "call client", *written.Assignment.Notes)
	require.NotNil(t, written.Transition)
	assert.Equal(t, stages[2].ID, written.Transition.To.ID)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/board/list?sort=priority&desc=true", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	rows := decode[[]board.Row](t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, "case-1", rows[0].CaseID)
	assert.Equal(t, "Proposta de Honorários", rows[0].StageName)
}

func TestTaskChecklist(t *testing.T) {
	srv := newTestServer(t)
	seedPipeline(t, srv, "lawyer-1")
	client := srv.Client()
	h := ownerHeader("lawyer-1")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases/case-1/tasks", map[string]any{"title": "Juntar procuração"}, h)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	task := decode[domain.Task](t, data)
	assert.False(t, task.IsCompleted)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/tasks/"+task.ID, map[string]any{"is_completed": true}, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	done := decode[domain.Task](t, data)
	assert.True(t, done.IsCompleted)
	assert.NotNil(t, done.CompletedAt)

	res, _ = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/tasks/"+task.ID, map[string]any{"is_completed": true}, ownerHeader("lawyer-2"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tasks/"+task.ID, nil, h)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/case-1/tasks", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Empty(t, decode[[]domain.Task](t, data))
}

func TestOpenAPIDocument(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/v0/cases/{case_id}/move")
	assert.Contains(t, paths, "/v0/board/calendar")
}
