package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/orchestrator"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("memory_ingest",
			mcplib.WithDescription(`Ingest a piece of text into an agent's memory.

The engine categorizes the content, stores it, extracts candidate beliefs,
and reinforces or conflicts with what the agent already believes.

Set dry_run=true to see the category the content would get without
persisting anything; a dry run does not extract beliefs.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent this memory belongs to"),
				mcplib.Required(),
			),
			mcplib.WithString("content",
				mcplib.Description("The text to ingest, up to 10000 characters"),
				mcplib.Required(),
			),
			mcplib.WithString("source",
				mcplib.Description("Where this content came from, e.g. 'conversation', 'observation', 'tool_output'"),
			),
			mcplib.WithBoolean("dry_run",
				mcplib.Description("If true, categorize only and do not persist anything"),
			),
		),
		s.handleMemoryIngest,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("memory_search",
			mcplib.WithDescription(`Search an agent's memory for content similar to a query.

Returns the most similar stored memories, ranked by similarity.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent whose memory to search"),
				mcplib.Required(),
			),
			mcplib.WithString("query",
				mcplib.Description("Natural language text to search for"),
				mcplib.Required(),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum results to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(10),
			),
		),
		s.handleMemorySearch,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("belief_list",
			mcplib.WithDescription(`List an agent's current beliefs, optionally filtered by category.

Returns only active beliefs by default.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent whose beliefs to list"),
				mcplib.Required(),
			),
			mcplib.WithString("category",
				mcplib.Description("Optional category to filter by (matches CategoryLabel.Primary)"),
			),
			mcplib.WithBoolean("include_inactive",
				mcplib.Description("Include deprecated/deactivated beliefs"),
			),
		),
		s.handleBeliefList,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("belief_resolve_conflict",
			mcplib.WithDescription(`Apply the configured resolution strategy to a detected belief conflict.

A conflict that resolves is removed from the store, so a later call with
the same id reports that no such conflict exists. Some strategies (merge, manual review) cannot auto-resolve; the response
reports whether resolution actually completed.`),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("conflict_id",
				mcplib.Description("The conflict id to resolve (cfl_ prefixed)"),
				mcplib.Required(),
			),
		),
		s.handleBeliefResolveConflict,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("graph_related",
			mcplib.WithDescription(`Find beliefs connected to a given belief in the relationship graph,
up to a bounded traversal depth (breadth-first).`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("belief_id",
				mcplib.Description("The belief id to start from (blf_ prefixed)"),
				mcplib.Required(),
			),
			mcplib.WithNumber("depth",
				mcplib.Description("Maximum traversal depth"),
				mcplib.Min(1),
				mcplib.Max(10),
				mcplib.DefaultNumber(2),
			),
		),
		s.handleGraphRelated,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("graph_shortest_path",
			mcplib.WithDescription(`Find the shortest relationship path between two beliefs.

Among paths of equal (minimal) hop count, the path with the highest
average edge strength is returned.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("source_belief_id",
				mcplib.Description("The starting belief id"),
				mcplib.Required(),
			),
			mcplib.WithString("target_belief_id",
				mcplib.Description("The destination belief id"),
				mcplib.Required(),
			),
		),
		s.handleGraphShortestPath,
	)
}

func (s *Server) handleMemoryIngest(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	content := request.GetString("content", "")
	if agentID == "" || content == "" {
		return errorResult("agent_id and content are required"), nil
	}

	input := orchestrator.IngestionInput{
		AgentID: domain.AgentID(agentID),
		Content: content,
		Source:  request.GetString("source", ""),
		DryRun:  request.GetBool("dry_run", false),
	}

	result, err := s.orchestrator.Ingest(ctx, input)
	if err != nil && !isPartialIngest(result) {
		return errorResult(fmt.Sprintf("ingest failed: %v", err)), nil
	}

	payload := map[string]any{
		"memory_id":              result.MemoryID,
		"category":               result.Category,
		"new_belief_ids":         result.NewBeliefIDs,
		"reinforced_belief_ids":  result.ReinforcedBeliefIDs,
		"conflict_ids":           result.ConflictIDs,
		"dry_run":                result.DryRun,
		"processing_time_ms":     result.ProcessingTimeMs,
		"belief_analysis_failed": result.BeliefAnalysisFailed,
	}
	if err != nil {
		payload["warning"] = err.Error()
	}

	data, _ := json.MarshalIndent(payload, "", "  ")
	return textResult(string(data)), nil
}

// isPartialIngest reports whether a non-nil Ingest error still carries a
// usable partial result (the memory was persisted, only belief analysis
// failed).
func isPartialIngest(result orchestrator.IngestionResult) bool {
	return result.MemoryID != "" && result.BeliefAnalysisFailed
}

func (s *Server) handleMemorySearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	query := request.GetString("query", "")
	if agentID == "" || query == "" {
		return errorResult("agent_id and query are required"), nil
	}
	limit := request.GetInt("limit", 10)

	var vector []float32
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, query)
		if err != nil {
			s.logger.Warn("memory_search: embedding failed, falling back to text similarity", zap.Error(err))
		} else {
			vector = v
		}
	}

	agent := domain.AgentID(agentID)

	var (
		results []domain.MemoryRecord
		err     error
	)
	if s.searchIndex != nil && vector != nil {
		results, err = s.searchViaIndex(ctx, agent, vector, limit)
		if err != nil {
			s.logger.Warn("memory_search: qdrant lookup failed, falling back to store search", zap.Error(err))
		}
	}
	if results == nil {
		results, err = s.memories.SearchSimilar(ctx, query, vector, limit, &agent)
		if err != nil {
			return errorResult(fmt.Sprintf("search failed: %v", err)), nil
		}
	}

	compact := make([]map[string]any, len(results))
	for i, r := range results {
		compact[i] = compactMemory(r)
	}

	data, _ := json.MarshalIndent(map[string]any{"results": compact, "total": len(compact)}, "", "  ")
	return textResult(string(data)), nil
}

// searchViaIndex queries the qdrant accelerator for the nearest memory
// embeddings, then hydrates full records from the memory store, preserving
// the index's relevance ordering.
func (s *Server) searchViaIndex(ctx context.Context, agent domain.AgentID, vector []float32, limit int) ([]domain.MemoryRecord, error) {
	hits, err := s.searchIndex.Search(ctx, agent, vector, "memory", limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.memories.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MemoryRecord, 0, len(hits))
	for _, h := range hits {
		if rec, ok := byID[h.ID]; ok && rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *Server) handleBeliefList(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}
	includeInactive := request.GetBool("include_inactive", false)
	category := request.GetString("category", "")

	var (
		beliefs []domain.Belief
		err     error
	)
	agent := domain.AgentID(agentID)
	if category != "" {
		beliefs, err = s.beliefs.ListByCategory(ctx, category, &agent)
		if err == nil && !includeInactive {
			active := beliefs[:0]
			for _, b := range beliefs {
				if b.Active {
					active = append(active, b)
				}
			}
			beliefs = active
		}
	} else {
		beliefs, err = s.beliefs.ListByAgent(ctx, agent, includeInactive)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}

	compact := make([]map[string]any, len(beliefs))
	for i, b := range beliefs {
		compact[i] = compactBelief(b)
	}

	data, _ := json.MarshalIndent(map[string]any{"beliefs": compact, "total": len(compact)}, "", "  ")
	return textResult(string(data)), nil
}

func (s *Server) handleBeliefResolveConflict(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	conflictID := request.GetString("conflict_id", "")
	if conflictID == "" {
		return errorResult("conflict_id is required"), nil
	}
	if s.brca == nil {
		return errorResult("conflict resolution is not available on this server"), nil
	}

	conflict, err := s.beliefs.GetConflict(ctx, conflictID)
	if err != nil {
		return errorResult(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	if conflict == nil {
		return errorResult(fmt.Sprintf("no such conflict: %s", conflictID)), nil
	}

	resolved, err := s.brca.ResolveConflict(ctx, *conflict)
	if err != nil {
		return errorResult(fmt.Sprintf("resolve failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(compactConflict(resolved), "", "  ")
	return textResult(string(data)), nil
}

func (s *Server) handleGraphRelated(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	beliefID := request.GetString("belief_id", "")
	if beliefID == "" {
		return errorResult("belief_id is required"), nil
	}
	if s.relationships == nil {
		return errorResult("graph traversal is not available on this server"), nil
	}
	depth := request.GetInt("depth", 2)

	related, err := s.relationships.FindRelatedBeliefs(ctx, beliefID, depth)
	if err != nil {
		return errorResult(fmt.Sprintf("traversal failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(map[string]any{"related_belief_ids": related, "total": len(related)}, "", "  ")
	return textResult(string(data)), nil
}

func (s *Server) handleGraphShortestPath(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	source := request.GetString("source_belief_id", "")
	target := request.GetString("target_belief_id", "")
	if source == "" || target == "" {
		return errorResult("source_belief_id and target_belief_id are required"), nil
	}
	if s.relationships == nil {
		return errorResult("graph traversal is not available on this server"), nil
	}

	path, err := s.relationships.ShortestPath(ctx, source, target)
	if err != nil {
		return errorResult(fmt.Sprintf("path search failed: %v", err)), nil
	}

	compact := make([]map[string]any, len(path))
	for i, edge := range path {
		compact[i] = compactRelationship(edge)
	}

	data, _ := json.MarshalIndent(map[string]any{"path": compact, "hops": len(compact)}, "", "  ")
	return textResult(string(data)), nil
}
