package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vendra-ai/vendra/internal/analysis"
	"github.com/vendra-ai/vendra/internal/conversation"
	"github.com/vendra-ai/vendra/internal/observability"
	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/simstore"
)

var tracer = otel.Tracer("vendra-mcp")

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "start_session",
			Description: "Start a sales practice session. Generates a simulated client persona for the scenario and returns a session ID. Use speak to talk to the client.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"product_name": map[string]any{
						"type":        "string",
						"description": "Product or service being sold",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Short description of the product",
					},
					"price_details": map[string]any{
						"type":        "string",
						"description": "Pricing and conditions, if relevant",
					},
					"call_objective": map[string]any{
						"type":        "string",
						"description": "What the seller wants out of the call (e.g. close the sale, book a demo)",
					},
					"contact_type": map[string]any{
						"type":        "string",
						"description": "How the call came about: cold_call, follow_up, inbound_callback",
						"default":     "cold_call",
					},
					"intensity": map[string]any{
						"type":        "string",
						"description": "Client difficulty: tranquilo, neutro, dificil",
						"default":     "neutro",
					},
					"realism": map[string]any{
						"type":        "string",
						"description": "Speech naturalness: natural, humano, exigente",
						"default":     "natural",
					},
					"allow_hangups": map[string]any{
						"type":        "boolean",
						"description": "Whether the client may end the call when frustrated",
						"default":     false,
					},
					"client_location": map[string]any{
						"type":        "string",
						"description": "Where the target client lives",
					},
					"client_pains": map[string]any{
						"type":        "string",
						"description": "Comma-separated pains the target client has",
					},
					"client_motivations": map[string]any{
						"type":        "string",
						"description": "Comma-separated motivations of the target client",
					},
				},
				Required: []string{"product_name"},
			},
		},
		{
			Name:        "speak",
			Description: "Say something to the simulated client as the seller. Returns the client's reply plus interest level and decision progress.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "The session ID returned from start_session",
					},
					"text": map[string]any{
						"type":        "string",
						"description": "What the seller says",
					},
				},
				Required: []string{"session_id", "text"},
			},
		},
		{
			Name:        "end_session",
			Description: "End a practice session with its outcome: accepted (client bought), rejected (client declined), or abandoned.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "The session ID to end",
					},
					"outcome": map[string]any{
						"type":        "string",
						"description": "accepted, rejected, or abandoned",
						"default":     "abandoned",
					},
				},
				Required: []string{"session_id"},
			},
		},
		{
			Name:        "analyze_session",
			Description: "Produce a coaching report for a session: score, successes, improvements, and key moments. Each session is analyzed once; later calls return the stored report.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "The session ID to analyze",
					},
				},
				Required: []string{"session_id"},
			},
		},
		{
			Name:        "list_sessions",
			Description: "List practice sessions, newest first. Returns session IDs, status, scenario, and outcomes.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
					"cursor": map[string]any{
						"type":        "string",
						"description": "Pagination cursor from a previous list_sessions call",
					},
				},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	engine   *conversation.Engine
	analyzer *analysis.Engine
	store    simstore.Store
	log      *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(engine *conversation.Engine, analyzer *analysis.Engine, store simstore.Store, logger *slog.Logger) *Handlers {
	return &Handlers{engine: engine, analyzer: analyzer, store: store, log: logger}
}

// HandleStartSession creates a session and its client persona.
func (h *Handlers) HandleStartSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.start_session")
	defer span.End()

	scenario := persona.Scenario{
		ProductName:   mcp.ParseString(req, "product_name", ""),
		Description:   mcp.ParseString(req, "description", ""),
		PriceDetails:  mcp.ParseString(req, "price_details", ""),
		CallObjective: mcp.ParseString(req, "call_objective", ""),
		ContactType:   persona.ContactType(mcp.ParseString(req, "contact_type", "cold_call")),
		TargetProfile: persona.TargetProfile{
			Location:    mcp.ParseString(req, "client_location", ""),
			Pains:       parseStringList(req, "client_pains"),
			Motivations: parseStringList(req, "client_motivations"),
		},
		SimulationPreferences: persona.SimulationPreferences{
			ClientIntensity: persona.Intensity(mcp.ParseString(req, "intensity", "neutro")),
			Realism:         persona.Realism(mcp.ParseString(req, "realism", "natural")),
			AllowHangups:    parseBoolParam(req, "allow_hangups", false),
		},
	}

	span.SetAttributes(
		attribute.String("product_name", scenario.ProductName),
		attribute.String("contact_type", string(scenario.ContactType)),
		attribute.String("intensity", string(scenario.SimulationPreferences.ClientIntensity)),
	)

	if scenario.ProductName == "" {
		span.SetStatus(codes.Error, "missing product_name")
		return mcp.NewToolResultError("product_name is required"), nil
	}
	switch scenario.ContactType {
	case persona.ContactColdCall, persona.ContactFollowUp, persona.ContactInboundCallback:
	default:
		span.SetStatus(codes.Error, "invalid contact_type")
		return mcp.NewToolResultError(fmt.Sprintf("invalid contact_type %q", scenario.ContactType)), nil
	}

	sess, err := h.engine.StartSession(ctx, scenario)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start session failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to start session: %v", err)), nil
	}

	span.SetAttributes(attribute.String("session_id", sess.ID))

	result := map[string]any{
		"session_id":      sess.ID,
		"status":          sess.Status,
		"client_name":     sess.Persona.Name,
		"client_attitude": sess.Persona.CallAttitude,
		"contact_type":    scenario.ContactType,
		"message":         "Session started. The client is on the line; use speak to open the call.",
	}
	return jsonResult(result)
}

// HandleSpeak runs one seller turn.
func (h *Handlers) HandleSpeak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.speak")
	defer span.End()

	sessionID := mcp.ParseString(req, "session_id", "")
	text := mcp.ParseString(req, "text", "")
	if sessionID == "" || text == "" {
		span.SetStatus(codes.Error, "missing arguments")
		return mcp.NewToolResultError("session_id and text are required"), nil
	}

	span.SetAttributes(attribute.String("session_id", sessionID))

	result, err := h.engine.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, simstore.ErrVersionConflict) {
			span.SetStatus(codes.Error, "concurrent turn")
			return mcp.NewToolResultError("another turn is being processed for this session; retry"), nil
		}
		span.SetStatus(codes.Error, "process turn failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to process turn: %v", err)), nil
	}

	span.SetAttributes(
		attribute.Int("turn_index", result.SellerTurnIndex),
		attribute.Int("interest", result.Client.Interest),
		attribute.String("decision_stage", string(result.State.DecisionProgression.Stage)),
	)

	payload := map[string]any{
		"client_text":    result.Client.ClientText,
		"interest":       result.Client.Interest,
		"interruption":   result.Client.Interruption,
		"wants_to_end":   result.Client.WantsToEnd,
		"turn_index":     result.ClientTurnIndex,
		"decision_stage": result.State.DecisionProgression.Stage,
		"confidence":     result.State.DecisionProgression.Confidence,
		"emotional_tone": result.Guidance.EmotionalTone,
	}
	if result.Client.WantsToEnd {
		payload["message"] = "The client wants to end the call. Wrap up and call end_session."
	}
	return jsonResult(payload)
}

// HandleEndSession closes a session.
func (h *Handlers) HandleEndSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.end_session")
	defer span.End()

	sessionID := mcp.ParseString(req, "session_id", "")
	outcome := mcp.ParseString(req, "outcome", conversation.OutcomeAbandoned)
	if sessionID == "" {
		span.SetStatus(codes.Error, "missing session_id")
		return mcp.NewToolResultError("session_id is required"), nil
	}

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("outcome", outcome),
	)

	if err := h.engine.End(ctx, sessionID, outcome); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "end session failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to end session: %v", err)), nil
	}

	// Prepare the coaching report off the request context so it is
	// already stored when analyze_session is called. A concurrent
	// analyze_session loses the create-once race and reads the stored
	// report instead.
	go func() {
		bgCtx := observability.DetachTraceContext(ctx)
		if _, err := h.analyzer.Analyze(bgCtx, sessionID); err != nil && !errors.Is(err, simstore.ErrAnalysisExists) {
			h.log.Warn("Background analysis failed", "session_id", sessionID, "error", err)
		}
	}()

	result := map[string]any{
		"session_id": sessionID,
		"status":     simstore.StatusCompleted,
		"outcome":    outcome,
		"message":    "Session ended. Use analyze_session for the coaching report.",
	}
	return jsonResult(result)
}

// HandleAnalyzeSession produces or returns the coaching report.
func (h *Handlers) HandleAnalyzeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.analyze_session")
	defer span.End()

	sessionID := mcp.ParseString(req, "session_id", "")
	if sessionID == "" {
		span.SetStatus(codes.Error, "missing session_id")
		return mcp.NewToolResultError("session_id is required"), nil
	}

	span.SetAttributes(attribute.String("session_id", sessionID))

	report, err := h.analyzer.Analyze(ctx, sessionID)
	if errors.Is(err, simstore.ErrAnalysisExists) {
		report, err = h.analyzer.Get(ctx, sessionID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analyze failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to analyze session: %v", err)), nil
	}

	span.SetAttributes(attribute.Int("score", report.Score))

	result := map[string]any{
		"session_id":   report.SessionID,
		"score":        report.Score,
		"successes":    report.Successes,
		"improvements": report.Improvements,
		"key_moments":  report.KeyMoments,
		"created_at":   report.CreatedAt,
	}
	return jsonResult(result)
}

// HandleListSessions returns a paginated session list.
func (h *Handlers) HandleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_sessions")
	defer span.End()

	limit := parseIntParam(req, "limit", 20)
	cursor := mcp.ParseString(req, "cursor", "")

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.String("cursor", cursor),
	)

	sessions, nextCursor, err := h.store.ListSessions(ctx, limit, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list sessions failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	span.SetAttributes(attribute.Int("result_count", len(sessions)))

	items := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		item := map[string]any{
			"session_id":   sess.ID,
			"status":       sess.Status,
			"product_name": sess.Scenario.ProductName,
			"contact_type": sess.Scenario.ContactType,
			"created_at":   sess.CreatedAt,
		}
		if sess.Persona != nil {
			item["client_name"] = sess.Persona.Name
		}
		if sess.Outcome != "" {
			item["outcome"] = sess.Outcome
		}
		items = append(items, item)
	}

	result := map[string]any{
		"sessions": items,
		"count":    len(items),
	}
	if nextCursor != "" {
		result["next_cursor"] = nextCursor
	}

	return jsonResult(result)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

func parseBoolParam(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	if v, ok := args[key].(bool); ok {
		return v
	}
	return defaultVal
}

func parseStringList(req mcp.CallToolRequest, key string) []string {
	raw := mcp.ParseString(req, key, "")
	if raw == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
