// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangel97/text-to-mongo/pkg/extensions"
	"github.com/jangel97/text-to-mongo/pkg/schema"
	evaldt "github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
	"github.com/jangel97/text-to-mongo/services/evalserver/datatypes"
	"github.com/jangel97/text-to-mongo/services/evalserver/handlers"
	"github.com/jangel97/text-to-mongo/services/evalserver/observability"
	"github.com/jangel97/text-to-mongo/services/evalserver/routes"
	"github.com/jangel97/text-to-mongo/services/evalserver/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter builds a router over the builtin catalog with an optional
// in-memory run store. The returned deps expose the store for direct
// assertions.
func newTestRouter(t *testing.T, withStore bool) (*gin.Engine, handlers.Deps) {
	t.Helper()

	deps := handlers.Deps{
		Catalog:     schema.BuiltinCatalog,
		Metrics:     observability.InitMetrics(),
		Concurrency: 2,
	}
	if withStore {
		st, err := store.OpenInMemory()
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		deps.Store = st
	}

	router := gin.New()
	routes.SetupRoutes(router, deps, extensions.DefaultOptions(), routes.DefaultRateLimit())
	return router, deps
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validOrdersFind = `{"type": "find", "filter": {"status": "pending"}}`

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp datatypes.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, len(schema.BuiltinCatalog().Schemas), resp.CatalogSize)
}

func TestHandleEvaluate(t *testing.T) {
	router, deps := newTestRouter(t, true)

	w := postJSON(t, router, "/v1/evaluations", datatypes.EvaluationRequest{
		Examples: []datatypes.ExampleSpec{
			{Collection: "orders", Intent: "show pending orders"},
			{Collection: "orders", Intent: "show shipped orders"},
		},
		Predictions: []string{validOrdersFind, "not json at all"},
		Split:       "eval",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report evaldt.EvalReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))

	assert.Equal(t, 2, report.Total)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, "eval", report.Split)
	assert.NotEmpty(t, report.RunID)
	assert.InDelta(t, 0.5, report.SyntaxPassRate, 1e-9)
	assert.True(t, report.Results[0].PassedAll)
	assert.False(t, report.Results[1].Syntax.Passed)

	// The report is persisted under the run ID the caller sees.
	stored, err := deps.Store.Get(t.Context(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.Total, stored.Total)
}

func TestHandleEvaluateLengthMismatch(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := postJSON(t, router, "/v1/evaluations", datatypes.EvaluationRequest{
		Examples:    []datatypes.ExampleSpec{{Collection: "orders"}},
		Predictions: []string{validOrdersFind, validOrdersFind},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "mismatch: 1 examples vs 2 predictions")
}

func TestHandleEvaluateUnknownCollection(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := postJSON(t, router, "/v1/evaluations", datatypes.EvaluationRequest{
		Examples:    []datatypes.ExampleSpec{{Collection: "no_such_collection"}},
		Predictions: []string{validOrdersFind},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown collection")
}

func TestHandleEvaluateRejectsEmptyExamples(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := postJSON(t, router, "/v1/evaluations", datatypes.EvaluationRequest{
		Examples:    []datatypes.ExampleSpec{},
		Predictions: []string{},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleValidate(t *testing.T) {
	router, _ := newTestRouter(t, false)

	t.Run("catalog collection passes", func(t *testing.T) {
		w := postJSON(t, router, "/v1/validate", datatypes.ValidateRequest{
			Collection: "orders",
			Prediction: validOrdersFind,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp datatypes.ValidateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Syntax.Passed)
		assert.True(t, resp.Operators.Passed)
		assert.True(t, resp.Fields.Passed)
		assert.True(t, resp.PassedAll)
	})

	t.Run("hallucinated field fails the field layer", func(t *testing.T) {
		w := postJSON(t, router, "/v1/validate", datatypes.ValidateRequest{
			Collection: "orders",
			Prediction: `{"type": "find", "filter": {"ghost_field": 1}}`,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp datatypes.ValidateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Syntax.Passed)
		assert.False(t, resp.Fields.Passed)
		assert.Contains(t, resp.Fields.HallucinatedFields, "ghost_field")
		assert.False(t, resp.PassedAll)
	})

	t.Run("inline schema", func(t *testing.T) {
		w := postJSON(t, router, "/v1/validate", datatypes.ValidateRequest{
			Schema: &schema.SchemaDef{
				Collection: "widgets",
				Domain:     "testing",
				Fields: []schema.FieldDef{
					{Name: "widget_id", Type: "string", Role: schema.RoleIdentifier},
					{Name: "weight", Type: "double", Role: schema.RoleMeasure},
				},
			},
			Prediction: `{"type": "find", "filter": {"weight": {"$gt": 10}}}`,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp datatypes.ValidateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.PassedAll)
	})

	t.Run("missing prediction rejected", func(t *testing.T) {
		w := postJSON(t, router, "/v1/validate", datatypes.ValidateRequest{
			Collection: "orders",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no schema and no collection rejected", func(t *testing.T) {
		w := postJSON(t, router, "/v1/validate", datatypes.ValidateRequest{
			Prediction: validOrdersFind,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "schema or a collection")
	})
}

func TestRunEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, true)

	w := postJSON(t, router, "/v1/evaluations", datatypes.EvaluationRequest{
		Examples:    []datatypes.ExampleSpec{{Collection: "orders"}},
		Predictions: []string{validOrdersFind},
		Split:       "eval",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var report evaldt.EvalReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Runs []store.RunSummary `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Runs, 1)
		assert.Equal(t, report.RunID, resp.Runs[0].RunID)
		assert.Equal(t, "eval", resp.Runs[0].Split)
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/"+report.RunID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var stored evaldt.EvalReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
		assert.Equal(t, report.RunID, stored.RunID)
		assert.Len(t, stored.Results, 1)
	})

	t.Run("get unknown", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/runs/"+report.RunID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNoContent, w.Code)

		req = httptest.NewRequest(http.MethodDelete, "/v1/runs/"+report.RunID, nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRunEndpointsWithoutStore(t *testing.T) {
	router, _ := newTestRouter(t, false)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/runs"},
		{http.MethodGet, "/v1/runs/abc"},
		{http.MethodDelete, "/v1/runs/abc"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equalf(t, http.StatusServiceUnavailable, w.Code, "%s %s", tc.method, tc.path)
	}
}

func dialWebSocket(t *testing.T, router *gin.Engine) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/v1/evaluations/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketStream(t *testing.T) {
	router, deps := newTestRouter(t, true)
	conn := dialWebSocket(t, router)

	const n = 3
	req := datatypes.EvaluationRequest{Split: "eval"}
	for i := 0; i < n; i++ {
		req.Examples = append(req.Examples, datatypes.ExampleSpec{
			Collection: "orders",
			Intent:     fmt.Sprintf("example %d", i),
		})
		req.Predictions = append(req.Predictions, validOrdersFind)
	}
	require.NoError(t, conn.WriteJSON(req))

	// One result frame per example, in completion order, then the report.
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		var frame datatypes.StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, datatypes.FrameResult, frame.Type)
		require.NotNil(t, frame.Result)
		assert.True(t, frame.Result.PassedAll)
		seen[frame.Index] = true
	}
	assert.Len(t, seen, n)

	var final datatypes.StreamFrame
	require.NoError(t, conn.ReadJSON(&final))
	require.Equal(t, datatypes.FrameReport, final.Type)
	require.NotNil(t, final.Report)
	assert.Equal(t, n, final.Report.Total)
	assert.Empty(t, final.Report.Results)
	assert.NotEmpty(t, final.Report.RunID)

	stored, err := deps.Store.Get(t.Context(), final.Report.RunID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.Total)
	assert.Len(t, stored.Results, n)
}

func TestWebSocketStreamRequestError(t *testing.T) {
	router, _ := newTestRouter(t, false)
	conn := dialWebSocket(t, router)

	require.NoError(t, conn.WriteJSON(datatypes.EvaluationRequest{
		Examples:    []datatypes.ExampleSpec{{Collection: "orders"}},
		Predictions: []string{validOrdersFind, validOrdersFind},
	}))

	var frame datatypes.StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, datatypes.FrameError, frame.Type)
	assert.Contains(t, frame.Error, "mismatch")
}
