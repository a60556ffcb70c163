// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	evaldt "github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
	"github.com/jangel97/text-to-mongo/services/evaluation/harness"
	"github.com/jangel97/text-to-mongo/services/evalserver/datatypes"
	"github.com/jangel97/text-to-mongo/services/evalserver/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

// wsConn serializes writes to a websocket connection. Result frames arrive
// from the harness's worker goroutines; gorilla allows only one concurrent
// writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) sendJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// HandleEvalWebSocket streams a batch evaluation.
//
// The client sends one EvaluationRequest as the first message. The server
// answers with one {type:"result"} frame per example as each finishes
// (not necessarily in input order; frames carry the input index) and a
// final {type:"report"} frame. Request errors produce one {type:"error"}
// frame. The connection closes after the final frame either way.
func HandleEvalWebSocket(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			deps.logger().Error("websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		deps.Metrics.StreamStarted()
		defer deps.Metrics.StreamEnded()

		conn := &wsConn{conn: ws}
		fail := func(msg string) {
			_ = conn.sendJSON(datatypes.StreamFrame{Type: datatypes.FrameError, Error: msg})
			deps.Metrics.RecordRequest(observability.EndpointStream, false)
		}

		var req datatypes.EvaluationRequest
		if err := ws.ReadJSON(&req); err != nil {
			fail("invalid request: " + err.Error())
			return
		}
		if len(req.Examples) == 0 {
			fail("examples must not be empty")
			return
		}

		catalog := deps.Catalog()
		examples, err := resolveExamples(catalog, req.Examples)
		if err != nil {
			fail(err.Error())
			return
		}

		runner := harness.New(
			harness.WithHeldOut(heldOutSet(catalog, req.HeldOut)),
			harness.WithConcurrency(deps.Concurrency),
			harness.WithLogger(deps.logger()),
			harness.WithSplit(req.Split),
			harness.WithProgress(func(index int, result evaldt.EvalResult) {
				res := result
				_ = conn.sendJSON(datatypes.StreamFrame{
					Type:   datatypes.FrameResult,
					Index:  index,
					Result: &res,
				})
			}),
		)

		start := time.Now()
		report, err := runner.Run(c.Request.Context(), examples, req.Predictions)
		if err != nil {
			fail(err.Error())
			return
		}
		deps.Metrics.RecordBatch(observability.EndpointStream, report.Total, time.Since(start).Seconds())

		if deps.Store != nil {
			if err := deps.Store.Save(c.Request.Context(), report); err != nil {
				deps.logger().Error("persisting report failed", "run_id", report.RunID, "error", err)
			}
		}
		if err := deps.Sink.WriteRun(c.Request.Context(), report); err != nil {
			deps.logger().Warn("run telemetry failed", "run_id", report.RunID, "error", err)
		}

		// The final frame omits per-example results; the client already
		// received each one as a result frame.
		final := report
		final.Results = nil
		if err := conn.sendJSON(datatypes.StreamFrame{Type: datatypes.FrameReport, Report: &final}); err != nil {
			deps.logger().Warn("writing final report frame failed", "run_id", report.RunID, "error", err)
			deps.Metrics.RecordRequest(observability.EndpointStream, false)
			return
		}
		deps.Metrics.RecordRequest(observability.EndpointStream, true)
	}
}
