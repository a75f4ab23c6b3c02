package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vendra-ai/vendra/internal/analysis"
	"github.com/vendra-ai/vendra/internal/conversation"
	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/simstore"
)

func newTestHandlers() (*Handlers, *simstore.MemoryStore) {
	store := simstore.NewMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	engine := conversation.NewEngine(store, nil, logger)
	analyzer := analysis.NewEngine(store, nil, logger)
	return NewHandlers(engine, analyzer, store, logger), store
}

func toolReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool result is an error: %+v", res.Content)
	}
	if len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func startEndedSession(t *testing.T, h *Handlers) string {
	t.Helper()
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, persona.Scenario{
		ProductName:   "Seguro vehicular",
		CallObjective: "Cerrar la venta",
		ContactType:   persona.ContactColdCall,
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := h.engine.ProcessTurn(ctx, sess.ID, "Hola, le llamo por el seguro vehicular"); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	res, err := h.HandleEndSession(ctx, toolReq(map[string]any{
		"session_id": sess.ID,
		"outcome":    "accepted",
	}))
	if err != nil {
		t.Fatalf("HandleEndSession: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal end_session result: %v", err)
	}
	if payload["outcome"] != "accepted" {
		t.Fatalf("outcome = %v, want accepted", payload["outcome"])
	}
	return sess.ID
}

func waitForAnalysis(t *testing.T, store *simstore.MemoryStore, sessionID string) *simstore.Analysis {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		report, err := store.GetAnalysis(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("GetAnalysis: %v", err)
		}
		if report != nil {
			return report
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no analysis stored after end_session")
	return nil
}

func TestEndSessionPreparesReportInBackground(t *testing.T) {
	h, store := newTestHandlers()
	sessionID := startEndedSession(t, h)

	report := waitForAnalysis(t, store, sessionID)
	if report.SessionID != sessionID {
		t.Fatalf("report session = %s, want %s", report.SessionID, sessionID)
	}
	if report.Score < 0 || report.Score > 100 {
		t.Fatalf("score = %d, want 0-100", report.Score)
	}
}

func TestAnalyzeSessionReturnsPreparedReport(t *testing.T) {
	h, store := newTestHandlers()
	sessionID := startEndedSession(t, h)
	stored := waitForAnalysis(t, store, sessionID)

	res, err := h.HandleAnalyzeSession(context.Background(), toolReq(map[string]any{
		"session_id": sessionID,
	}))
	if err != nil {
		t.Fatalf("HandleAnalyzeSession: %v", err)
	}

	var payload struct {
		SessionID string `json:"session_id"`
		Score     int    `json:"score"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal analyze result: %v", err)
	}
	if payload.SessionID != sessionID {
		t.Fatalf("session_id = %s, want %s", payload.SessionID, sessionID)
	}
	if payload.Score != stored.Score {
		t.Fatalf("score = %d, want the stored report's %d", payload.Score, stored.Score)
	}
}
