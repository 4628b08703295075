// ABOUTME: MCP tool handler implementations for the cortexmem tool-server
// ABOUTME: Each handler validates arguments, calls into internal/engine, and marshals the result to JSON
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/engine"
	"github.com/harper/cortexmem/internal/router"
)

// Handlers holds the engine every tool call is projected onto.
type Handlers struct {
	engine *engine.Engine
}

func textResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func factInputsFrom(args map[string]interface{}) []router.FactInput {
	raw, ok := args["facts"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]router.FactInput, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		fi := router.FactInput{
			Subject:   stringField(m, "subject"),
			Predicate: stringField(m, "predicate"),
			Object:    stringField(m, "object"),
		}
		if c, ok := m["confidence"].(float64); ok {
			fi.Confidence = c
		}
		out = append(out, fi)
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func stringSliceField(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Store handles the store tool: contextual, factual, or both.
func (h *Handlers) Store(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}
	args := request.GetArguments()

	storeType := router.StoreType(request.GetString("type", string(router.StoreContextual)))
	content := request.GetString("content", "")
	tags := stringSliceField(args, "tags")
	facts := factInputsFrom(args)

	res, err := h.engine.Store(ctx, content, router.StoreOptions{
		Type:   storeType,
		Facts:  facts,
		Tags:   tags,
		UserID: userID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := map[string]interface{}{"fact_ids": res.FactIDs}
	if res.Memory != nil {
		response["memory_id"] = res.Memory.ID
		response["sectors"] = res.Memory.Sectors
	}
	return textResult(response)
}

// Query handles the query tool: contextual recall, factual lookup, or both.
func (h *Handlers) Query(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}

	qType := router.QueryType(request.GetString("type", string(router.TypeUnified)))
	text := request.GetString("text", "")
	k := request.GetInt("k", 5)

	res, err := h.engine.Recall(ctx, text, router.RecallOptions{
		Type: qType,
		FactPattern: router.FactPattern{
			Subject:   request.GetString("subject", ""),
			Predicate: request.GetString("predicate", ""),
			Object:    request.GetString("object", ""),
		},
		K:      k,
		UserID: userID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := map[string]interface{}{}
	if res.Contextual != nil {
		response["memories"] = res.Contextual.Hits
		response["degraded"] = res.Contextual.Degraded
	}
	if res.Factual != nil {
		response["facts"] = res.Factual
	}
	return textResult(response)
}

// List handles the list tool.
func (h *Handlers) List(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}

	sector := domain.Sector(request.GetString("sector", ""))
	limit := request.GetInt("limit", 20)
	offset := request.GetInt("offset", 0)

	memories, err := h.engine.List(ctx, userID, sector, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(map[string]interface{}{"memories": memories})
}

// Get handles the get tool.
func (h *Handlers) Get(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}
	args := request.GetArguments()
	includeVectors, _ := args["include_vectors"].(bool)

	memory, vectors, err := h.engine.Get(ctx, id, userID, includeVectors)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := map[string]interface{}{"memory": memory}
	if includeVectors {
		response["vectors"] = vectors
	}
	return textResult(response)
}

// Reinforce handles the reinforce tool.
func (h *Handlers) Reinforce(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}

	if err := h.engine.Reinforce(ctx, id, userID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(map[string]interface{}{"reinforced": id})
}

// StoreBatch handles the store_batch tool.
func (h *Handlers) StoreBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}
	args := request.GetArguments()
	inputs := factInputsFrom(args)
	if len(inputs) == 0 {
		return mcp.NewToolResultError("facts argument is required and must be a non-empty array"), nil
	}

	now := time.Now().UTC()
	facts := make([]*domain.Fact, 0, len(inputs))
	for _, fi := range inputs {
		facts = append(facts, &domain.Fact{
			UserID:      userID,
			Subject:     fi.Subject,
			Predicate:   fi.Predicate,
			Object:      fi.Object,
			ValidFrom:   now,
			Confidence:  fi.Confidence,
			LastUpdated: now,
		})
	}

	if err := h.engine.AddFacts(ctx, facts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ids := make([]string, len(facts))
	for i, f := range facts {
		ids[i] = f.ID
	}
	return textResult(map[string]interface{}{"fact_ids": ids})
}

// DeleteBatch handles the delete_batch tool.
func (h *Handlers) DeleteBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}
	ids := stringSliceField(request.GetArguments(), "ids")
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids argument is required and must be a non-empty array"), nil
	}

	deleted := make([]string, 0, len(ids))
	var lastErr error
	for _, id := range ids {
		if err := h.engine.Delete(ctx, id, userID); err != nil {
			lastErr = err
			continue
		}
		deleted = append(deleted, id)
	}
	response := map[string]interface{}{"deleted": deleted}
	if lastErr != nil {
		response["error"] = lastErr.Error()
	}
	return textResult(response)
}

// UpdateFact handles the update_fact tool.
func (h *Handlers) UpdateFact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required and must be a string"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}

	args := request.GetArguments()
	var confidence *float64
	if c, ok := args["confidence"].(float64); ok {
		confidence = &c
	}

	if err := h.engine.UpdateFact(ctx, id, userID, confidence, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(map[string]interface{}{"updated": id})
}
