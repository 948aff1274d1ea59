package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/voxdesk/voxdesk/internal/casefile"
	"github.com/voxdesk/voxdesk/internal/journal"
	"github.com/voxdesk/voxdesk/internal/lookup"
	"github.com/voxdesk/voxdesk/internal/schema"
	"github.com/voxdesk/voxdesk/internal/session"
)

// MCPDeps holds dependencies for the MCP server. It mirrors AppDeps; the
// two surfaces expose the same operations over different transports.
type MCPDeps struct {
	Sessions *session.Manager
	Journal  *journal.Journal
	Index    *lookup.Index
	Cases    *casefile.Store // optional; case tools report an error without it
	Preset   string
	TopK     int
}

// NewMCPServer creates an MCP server with all voxdesk tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"voxdesk",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("voxdesk: session record capture, catalog lookup, cart math, and case resolution for voice agents."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("open_session",
			mcp.WithDescription("Open a new capture session for a schema and return its id and the fields still missing."),
			mcp.WithString("schema", mcp.Description("Schema preset name (default from server config)")),
		),
		mcpOpenSession(deps),
	)

	s.AddTool(
		mcp.NewTool("update_record",
			mcp.WithDescription("Apply captured field values to a session record. Valid values stick, invalid ones are reported back per field; the session always continues."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
			mcp.WithString("fields", mcp.Description("JSON object of field name to value"), mcp.Required()),
		),
		mcpUpdateRecord(deps),
	)

	s.AddTool(
		mcp.NewTool("missing_fields",
			mcp.WithDescription("List the required fields a session record still lacks, with the prompts to ask for them."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpMissingFields(deps),
	)

	s.AddTool(
		mcp.NewTool("finalize_record",
			mcp.WithDescription("Persist a complete session record to the journal and reset the session. Fails if required fields are missing."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpFinalizeRecord(deps),
	)

	s.AddTool(
		mcp.NewTool("lookup_catalog",
			mcp.WithDescription("Search the loaded catalog by keyword and return the best-scoring items."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
		),
		mcpLookupCatalog(deps),
	)

	s.AddTool(
		mcp.NewTool("cart_add",
			mcp.WithDescription("Add an item to a session cart, merging with an existing line of the same name."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Item name"), mcp.Required()),
			mcp.WithNumber("quantity", mcp.Description("Quantity to add"), mcp.Required()),
			mcp.WithNumber("unit_price", mcp.Description("Price per unit")),
			mcp.WithString("unit", mcp.Description("Unit of measure, e.g. kg or dozen")),
		),
		mcpCartAdd(deps),
	)

	s.AddTool(
		mcp.NewTool("cart_remove",
			mcp.WithDescription("Remove a line from a session cart by item name."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Item name"), mcp.Required()),
		),
		mcpCartRemove(deps),
	)

	s.AddTool(
		mcp.NewTool("cart_set_quantity",
			mcp.WithDescription("Set the quantity of a cart line. Zero or negative removes the line."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Item name"), mcp.Required()),
			mcp.WithNumber("quantity", mcp.Description("New quantity"), mcp.Required()),
		),
		mcpCartSetQuantity(deps),
	)

	s.AddTool(
		mcp.NewTool("cart_total",
			mcp.WithDescription("Return the lines and rounded total of a session cart."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpCartTotal(deps),
	)

	s.AddTool(
		mcp.NewTool("find_fraud_case",
			mcp.WithDescription("Look up fraud cases by customer name. Names are not unique; all matches are returned."),
			mcp.WithString("name", mcp.Description("Customer name, full or partial"), mcp.Required()),
		),
		mcpFindFraudCase(deps),
	)

	s.AddTool(
		mcp.NewTool("resolve_fraud_case",
			mcp.WithDescription("Record the outcome of a fraud case, keyed by its unique security identifier."),
			mcp.WithString("security_identifier", mcp.Description("Unique case identifier"), mcp.Required()),
			mcp.WithString("status", mcp.Description("resolved or escalated"), mcp.Required()),
			mcp.WithString("outcome", mcp.Description("Free-text outcome note"), mcp.Required()),
		),
		mcpResolveFraudCase(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"voxdesk://orders/recent",
			"Recent Orders",
			mcp.WithResourceDescription("Last 20 finalized records from the journal"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentOrders(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"voxdesk://catalog",
			"Catalog",
			mcp.WithResourceDescription("All loaded catalog items"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpText(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

func mcpError(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

func mcpOpenSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("schema", deps.Preset)

		sch, err := schema.Preset(name)
		if err != nil {
			return mcpError(fmt.Sprintf("unknown schema %q", name)), nil
		}

		sess := deps.Sessions.Create(sch)
		b, err := json.Marshal(recordView(sess, nil))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal session: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpUpdateRecord(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		fieldsJSON, err := req.RequireString("fields")
		if err != nil {
			return mcpError("fields is required"), nil
		}

		var fields map[string]any
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return mcpError(fmt.Sprintf("invalid fields JSON: %v", err)), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}

		res := sess.Record.Update(fields)
		var rejected map[string]string
		if len(res.Rejected) > 0 {
			rejected = make(map[string]string, len(res.Rejected))
			for name, ve := range res.Rejected {
				msg := ve.Rule
				if ve.Alternative != "" {
					msg += "; " + ve.Alternative
				}
				rejected[name] = msg
			}
		}

		b, err := json.Marshal(recordView(sess, rejected))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal record: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpMissingFields(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}

		b, err := json.Marshal(map[string]any{
			"complete": sess.Record.IsComplete(),
			"missing":  sess.Record.MissingFields(),
			"prompts":  sess.Record.MissingPrompts(),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFinalizeRecord(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}

		receipt, err := deps.Sessions.Finalize(id)
		if err != nil {
			if errors.Is(err, session.ErrIncompleteRecord) {
				return mcpError(fmt.Sprintf("record incomplete, still missing: %v", sess.Record.MissingFields())), nil
			}
			return mcpError(fmt.Sprintf("finalize failed: %v", err)), nil
		}

		b, err := json.Marshal(receipt)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal receipt: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLookupCatalog(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", deps.TopK)
		if limit <= 0 {
			limit = deps.TopK
		}

		matches, err := deps.Index.Search(query, limit)
		if err != nil {
			if errors.Is(err, lookup.ErrNoMatch) {
				return mcpText(fmt.Sprintf("No catalog item matches %q.", query)), nil
			}
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		type matchResult struct {
			Name     string   `json:"name"`
			Body     string   `json:"body,omitempty"`
			Tags     []string `json:"tags,omitempty"`
			Price    float64  `json:"price,omitempty"`
			Unit     string   `json:"unit,omitempty"`
			Category string   `json:"category,omitempty"`
			Score    int      `json:"score"`
		}
		results := make([]matchResult, len(matches))
		for i, m := range matches {
			results[i] = matchResult{
				Name:     m.Item.Name,
				Body:     m.Item.Body,
				Tags:     m.Item.Tags,
				Price:    m.Item.Price,
				Unit:     m.Item.Unit,
				Category: m.Item.Category,
				Score:    m.Score,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCartAdd(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		qty, err := req.RequireFloat("quantity")
		if err != nil {
			return mcpError("quantity is required"), nil
		}
		unitPrice := req.GetFloat("unit_price", 0)
		unit := req.GetString("unit", "")

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}

		if _, err := sess.Cart.AddItem(name, qty, unitPrice, unit); err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpCartView(sess)
	}
}

func mcpCartRemove(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}

		if err := sess.Cart.RemoveItem(name); err != nil {
			return mcpError(fmt.Sprintf("no cart line named %q", name)), nil
		}
		return mcpCartView(sess)
	}
}

func mcpCartSetQuantity(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		qty, err := req.RequireFloat("quantity")
		if err != nil {
			return mcpError("quantity is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}

		if err := sess.Cart.UpdateQuantity(name, qty); err != nil {
			return mcpError(fmt.Sprintf("no cart line named %q", name)), nil
		}
		return mcpCartView(sess)
	}
}

func mcpCartTotal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError("session not found"), nil
		}
		return mcpCartView(sess)
	}
}

func mcpCartView(sess *session.Session) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(viewCart(sess.Cart))
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal cart: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpFindFraudCase(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Cases == nil {
			return mcpError("case store not configured"), nil
		}

		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		cases, err := deps.Cases.SearchByName(name)
		if err != nil {
			return mcpError(fmt.Sprintf("case search failed: %v", err)), nil
		}
		if len(cases) == 0 {
			return mcpText(fmt.Sprintf("No case found for %q.", name)), nil
		}

		views := make([]caseView, len(cases))
		for i, c := range cases {
			views[i] = viewCase(c)
		}
		b, err := json.Marshal(views)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal cases: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResolveFraudCase(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Cases == nil {
			return mcpError("case store not configured"), nil
		}

		sid, err := req.RequireString("security_identifier")
		if err != nil {
			return mcpError("security_identifier is required"), nil
		}
		status, err := req.RequireString("status")
		if err != nil {
			return mcpError("status is required"), nil
		}
		outcome, err := req.RequireString("outcome")
		if err != nil {
			return mcpError("outcome is required"), nil
		}

		switch status {
		case casefile.StatusResolved, casefile.StatusEscalated:
		default:
			return mcpError(fmt.Sprintf("status must be %q or %q", casefile.StatusResolved, casefile.StatusEscalated)), nil
		}

		if err := deps.Cases.UpdateOutcome(sid, status, outcome); err != nil {
			if errors.Is(err, casefile.ErrNotFound) {
				return mcpError(fmt.Sprintf("no case with identifier %q", sid)), nil
			}
			return mcpError(fmt.Sprintf("failed to update case: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Case %s marked %s.", sid, status)), nil
	}
}

func mcpResourceRecentOrders(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := deps.Journal.LoadRecent(20)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		if entries == nil {
			entries = []journal.Entry{}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal orders: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "voxdesk://orders/recent",
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Index.Items())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "voxdesk://catalog",
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}
