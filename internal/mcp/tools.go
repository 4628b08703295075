// ABOUTME: MCP tool definitions and registration for the cortexmem tool-server
// ABOUTME: Each tool is a thin projection of the programmatic API onto mark3labs/mcp-go's schema format
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/cortexmem/internal/engine"
)

// RegisterTools registers every tool the core exposes to the tool protocol:
// store, query, list, get, reinforce, plus store_batch, delete_batch, and
// update_fact.
func RegisterTools(server *mcpserver.MCPServer, eng *engine.Engine) *Handlers {
	h := &Handlers{engine: eng}

	server.AddTool(mcp.Tool{
		Name:        "store",
		Description: "Store a memory (contextual), one or more temporal facts (factual), or both, for a user.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "contextual (default), factual, or both",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Memory text; required for contextual/both",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional tags attached to the memory",
				},
				"facts": map[string]interface{}{
					"type":        "array",
					"description": "Facts to store; required for factual/both. Each item: {subject, predicate, object, confidence}",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"subject":    map[string]interface{}{"type": "string"},
							"predicate":  map[string]interface{}{"type": "string"},
							"object":     map[string]interface{}{"type": "string"},
							"confidence": map[string]interface{}{"type": "number"},
						},
					},
				},
			},
			Required: []string{"user_id"},
		},
	}, h.Store)

	server.AddTool(mcp.Tool{
		Name:        "query",
		Description: "Recall memories and/or facts: contextual (semantic) recall, factual (as-of) lookup, or both.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "contextual, factual, or unified (default)",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Query text for contextual/unified recall",
				},
				"subject": map[string]interface{}{
					"type":        "string",
					"description": "Fact pattern subject for factual/unified recall",
				},
				"predicate": map[string]interface{}{
					"type":        "string",
					"description": "Fact pattern predicate for factual/unified recall",
				},
				"object": map[string]interface{}{
					"type":        "string",
					"description": "Fact pattern object for factual/unified recall",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum contextual hits to return (default 5)",
					"default":     5,
				},
			},
			Required: []string{"user_id"},
		},
	}, h.Query)

	server.AddTool(mcp.Tool{
		Name:        "list",
		Description: "List a page of a user's memories, optionally filtered by sector.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"sector": map[string]interface{}{
					"type":        "string",
					"description": "Optional sector filter",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Page size (default 20)",
					"default":     20,
				},
				"offset": map[string]interface{}{
					"type":        "number",
					"description": "Page offset (default 0)",
					"default":     0,
				},
			},
			Required: []string{"user_id"},
		},
	}, h.List)

	server.AddTool(mcp.Tool{
		Name:        "get",
		Description: "Get a single memory by id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Memory id",
				},
				"include_vectors": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the memory's stored embedding vectors",
					"default":     false,
				},
			},
			Required: []string{"user_id", "id"},
		},
	}, h.Get)

	server.AddTool(mcp.Tool{
		Name:        "reinforce",
		Description: "Reinforce a memory: bumps salience and touches last_seen_at.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Memory id",
				},
			},
			Required: []string{"user_id", "id"},
		},
	}, h.Reinforce)

	server.AddTool(mcp.Tool{
		Name:        "store_batch",
		Description: "Store a batch of temporal facts for a user in one call.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"facts": map[string]interface{}{
					"type":        "array",
					"description": "Facts to store: {subject, predicate, object, confidence}",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"subject":    map[string]interface{}{"type": "string"},
							"predicate":  map[string]interface{}{"type": "string"},
							"object":     map[string]interface{}{"type": "string"},
							"confidence": map[string]interface{}{"type": "number"},
						},
					},
				},
			},
			Required: []string{"user_id", "facts"},
		},
	}, h.StoreBatch)

	server.AddTool(mcp.Tool{
		Name:        "delete_batch",
		Description: "Delete a batch of memories by id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Memory ids to delete",
				},
			},
			Required: []string{"user_id", "ids"},
		},
	}, h.DeleteBatch)

	server.AddTool(mcp.Tool{
		Name:        "update_fact",
		Description: "Update a fact's confidence without changing its validity window. Metadata cannot be set through this tool.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Owning user id; required for every call",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Fact id",
				},
				"confidence": map[string]interface{}{
					"type":        "number",
					"description": "New confidence value",
				},
			},
			Required: []string{"user_id", "id"},
		},
	}, h.UpdateFact)

	return h
}
