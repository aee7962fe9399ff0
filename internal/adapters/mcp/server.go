// Package mcpadapter exposes quote pricing to MCP clients over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/usecase"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	ToolComputeQuote = "compute_quote"
	ToolListCatalog  = "list_catalog"
)

type Server struct {
	calc        usecase.QuoteCalculator
	catalog     ports.Catalog
	baseTaxRate domain.Rate
	version     string
	log         logging.Logger
}

func NewServer(calc usecase.QuoteCalculator, catalog ports.Catalog, baseTaxRate domain.Rate, version string, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	if version == "" {
		version = "1.0.0"
	}
	return &Server{
		calc:        calc,
		catalog:     catalog,
		baseTaxRate: baseTaxRate,
		version:     version,
		log:         log.With(logging.Fields{"component": "mcp"}),
	}
}

// MCP builds the protocol server with both tools registered.
func (s *Server) MCP() *server.MCPServer {
	srv := server.NewMCPServer("ai-quote-generator", s.version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool(ToolComputeQuote,
		mcp.WithDescription("Price a legal services quote for a client in a US state. Nothing is stored."),
		mcp.WithArray("services", mcp.Required(), mcp.WithStringItems(),
			mcp.Description("Service identifiers from list_catalog, 1 to 10 entries")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Two-letter state code or OTHER")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Client name")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Client email")),
		mcp.WithString("phone", mcp.Description("Client phone number")),
	), s.computeQuote)

	srv.AddTool(mcp.NewTool(ToolListCatalog,
		mcp.WithDescription("List the legal services, state tax rates and pricing defaults."),
	), s.listCatalog)

	return srv
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCP())
}

func (s *Server) computeQuote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	services, err := req.RequireStringSlice("services")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	quote, err := s.calc.Compute(services, state, domain.ClientInfo{
		Name:  name,
		Email: email,
		Phone: req.GetString("phone", ""),
	}, false)
	if err != nil {
		s.log.Warn("mcp_compute_quote_rejected", logging.Fields{"error": err.Error()})
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(quote)
}

func (s *Server) listCatalog(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(domain.CatalogView{
		Services: s.catalog.Services(),
		States:   s.catalog.States(),
		Pricing: domain.PricingInfo{
			BaseTaxRate: s.baseTaxRate.Float64(),
			Currency:    domain.CurrencyUSD,
		},
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
