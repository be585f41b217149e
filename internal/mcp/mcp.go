// Package mcp exposes the Belief-Memory Engine's ingestion, recall, and
// graph-traversal operations as Model Context Protocol tools, so an
// autonomous agent can ingest experience and query its own beliefs
// without going through a bespoke HTTP API, grounded on the pack's
// mark3labs/mcp-go tool-registration pattern.
package mcp

import (
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/orchestrator"
	"github.com/ant-engram/belief-memory-engine/internal/relationship"
	"github.com/ant-engram/belief-memory-engine/internal/store/qdrantindex"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
)

const serverInstructions = `You have access to a belief-memory engine: a per-agent store of ingested
experience and the beliefs derived from it.

WORKFLOW:
1. Call memory_ingest with raw text as you observe or are told things. The engine
   derives candidate beliefs, reinforces existing ones, and flags conflicts for you.
2. Call memory_search or belief_list to recall what you already believe before
   acting on new information.
3. If memory_ingest reports conflicts, call belief_resolve_conflict to apply the
   configured resolution strategy.
4. Use graph_related and graph_shortest_path to understand how beliefs connect —
   what something implies, what it contradicts, what superseded it.

Every call is scoped to a single agent_id you supply; the engine never mixes
beliefs across agents.`

// Server wraps an MCP server over the Belief-Memory Engine's core services.
type Server struct {
	mcpServer     *mcpserver.MCPServer
	orchestrator  *orchestrator.Orchestrator
	beliefs       domain.BeliefStore
	memories      domain.MemoryStore
	brca          *brca.Engine
	relationships *relationship.Engine
	embedder      domain.EmbeddingClient // optional; nil means text-only search
	searchIndex   *qdrantindex.Index     // optional vector-search accelerator
	logger        *zap.Logger
}

// New constructs an MCP server wired to the engine's core services.
// embedder may be nil, in which case memory_search falls back to
// text-only similarity. searchIndex may be nil, in which case
// memory_search always queries the memory store directly.
func New(
	orch *orchestrator.Orchestrator,
	beliefs domain.BeliefStore,
	memories domain.MemoryStore,
	brcaEngine *brca.Engine,
	rel *relationship.Engine,
	embedder domain.EmbeddingClient,
	searchIndex *qdrantindex.Index,
	logger *zap.Logger,
	version string,
) *Server {
	s := &Server{
		orchestrator:  orch,
		beliefs:       beliefs,
		memories:      memories,
		brca:          brcaEngine,
		relationships: rel,
		embedder:      embedder,
		searchIndex:   searchIndex,
		logger:        logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"engram",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}
