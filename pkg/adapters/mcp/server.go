package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/curator"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RecommendArgs are the arguments of the recommend tool.
type RecommendArgs struct {
	Username string `json:"username"`
	StoreID  string `json:"store_id,omitempty"`
	TopK     *int   `json:"top_k,omitempty"`
}

// RecommendResponse is the structured output of the recommend tool.
type RecommendResponse struct {
	RunID string   `json:"run_id" jsonschema_description:"Identifier of the run"`
	Items []string `json:"items" jsonschema_description:"Recommended items, best first"`
}

// Engine defines what the MCP server needs from the curator engine.
type Engine interface {
	Recommend(ctx context.Context, req curator.Request) (*domain.Recommendation, error)
	Tools() *registry.Registry
}

// Server wraps the curator Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	storeID   string
	topK      int
}

// Option configures the Server.
type Option func(*Server)

// WithDefaults sets the store and top_k used when a call omits them.
func WithDefaults(storeID string, topK int) Option {
	return func(s *Server) {
		s.storeID = storeID
		s.topK = topK
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("curator-mcp", strings.TrimSpace(curator.Version)),
		topK:      3,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	recommendTool := mcp.NewTool("recommend",
		mcp.WithDescription("Recommend items from a store's inventory based on a user's purchase history."),
		mcp.WithString("username", mcp.Required(), mcp.Description("User whose history drives the recommendation")),
		mcp.WithString("store_id", mcp.Description("Store to recommend from (optional)")),
		mcp.WithNumber("top_k", mcp.Min(0), mcp.Description("Maximum number of items to return (optional)")),
		mcp.WithOutputSchema[RecommendResponse](),
	)
	s.mcpServer.AddTool(recommendTool, mcp.NewStructuredToolHandler(s.HandleRecommend))

	for _, tool := range s.engine.Tools().Tools() {
		opts := []mcp.ToolOption{mcp.WithDescription(tool.Description)}
		switch tool.Name {
		case domain.ToolHistoryLookup:
			opts = append(opts, mcp.WithString("username", mcp.Required(), mcp.Description("Username to look up")))
		case domain.ToolInventoryLookup:
			opts = append(opts, mcp.WithString("store_id", mcp.Required(), mcp.Description("Store to look up")))
		case domain.ToolRank:
			opts = append(opts, mcp.WithArray("items", mcp.Required(), mcp.WithStringItems(), mcp.Description("Items to rank")))
		}
		s.mcpServer.AddTool(mcp.NewTool(string(tool.Name), opts...), s.ToolHandler(tool.Name))
	}
}

// HandleRecommend runs one recommendation.
func (s *Server) HandleRecommend(ctx context.Context, request mcp.CallToolRequest, args RecommendArgs) (RecommendResponse, error) {
	req := curator.Request{
		RunID:    curator.NewRunID(),
		Username: args.Username,
		StoreID:  args.StoreID,
		TopK:     s.topK,
	}
	if req.StoreID == "" {
		req.StoreID = s.storeID
	}
	if args.TopK != nil {
		req.TopK = *args.TopK
	}

	rec, err := s.engine.Recommend(ctx, req)
	if err != nil {
		return RecommendResponse{}, fmt.Errorf("recommend failed: %w", err)
	}
	return RecommendResponse{RunID: req.RunID, Items: rec.Items}, nil
}

// ToolHandler forwards a call to the named registry tool and returns its result as JSON text.
func (s *Server) ToolHandler(name domain.ToolName) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.engine.Tools().Invoke(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
		}
		jsonBytes, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("curator://tools", "Registry Tools",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Tools().Tools())
		if err != nil {
			return nil, fmt.Errorf("failed to describe tools: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "curator://tools",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
