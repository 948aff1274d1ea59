package api

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/voxdesk/voxdesk/internal/casefile"
	"github.com/voxdesk/voxdesk/internal/catalog"
	"github.com/voxdesk/voxdesk/internal/journal"
	"github.com/voxdesk/voxdesk/internal/lookup"
	"github.com/voxdesk/voxdesk/internal/schema"
	"github.com/voxdesk/voxdesk/internal/session"
)

func setupMCPDeps(t *testing.T) MCPDeps {
	t.Helper()

	cases, err := casefile.Open(":memory:")
	if err != nil {
		t.Fatalf("casefile.Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { cases.Close() })

	jnl := journal.Open(filepath.Join(t.TempDir(), "orders.json"))

	return MCPDeps{
		Sessions: session.NewManager(jnl),
		Journal:  jnl,
		Index: lookup.New([]catalog.Item{
			{Name: "Fresh Milk", Body: "Full cream dairy", Price: 3.5, Unit: "litre"},
			{Name: "Sourdough Bread", Body: "Stone baked loaf", Price: 5.0, Unit: "loaf"},
		}),
		Cases:  cases,
		Preset: "coffee_order",
		TopK:   3,
	}
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestMCPOpenSession(t *testing.T) {
	deps := setupMCPDeps(t)
	handler := mcpOpenSession(deps)

	result, err := handler(context.Background(), makeCallToolRequest("open_session", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var view RecordView
	if err := json.Unmarshal([]byte(resultText(t, result)), &view); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if view.Schema != "coffee_order" {
		t.Errorf("Schema = %q", view.Schema)
	}
	if view.ID == "" {
		t.Error("session id missing")
	}
}

func TestMCPOpenSessionUnknownSchema(t *testing.T) {
	deps := setupMCPDeps(t)
	handler := mcpOpenSession(deps)

	result, err := handler(context.Background(), makeCallToolRequest("open_session",
		map[string]interface{}{"schema": "bogus"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown schema")
	}
}

func TestMCPUpdateRecord(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.CoffeeOrder())

	handler := mcpUpdateRecord(deps)
	result, err := handler(context.Background(), makeCallToolRequest("update_record",
		map[string]interface{}{
			"session_id": sess.ID,
			"fields":     `{"drinkType":"latte","milk":"none"}`,
		}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var view RecordView
	if err := json.Unmarshal([]byte(resultText(t, result)), &view); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if _, ok := view.Rejected["milk"]; !ok {
		t.Errorf("Rejected = %v, want milk entry", view.Rejected)
	}
	if view.Fields["drinkType"] != "latte" {
		t.Errorf("Fields = %v", view.Fields)
	}
}

func TestMCPUpdateRecordInvalidJSON(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.CoffeeOrder())

	handler := mcpUpdateRecord(deps)
	result, err := handler(context.Background(), makeCallToolRequest("update_record",
		map[string]interface{}{"session_id": sess.ID, "fields": "{broken"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for invalid fields JSON")
	}
}

func TestMCPMissingFields(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.CoffeeOrder())
	sess.Record.Update(map[string]any{"drinkType": "espresso"})

	handler := mcpMissingFields(deps)
	result, err := handler(context.Background(), makeCallToolRequest("missing_fields",
		map[string]interface{}{"session_id": sess.ID}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var out struct {
		Complete bool     `json:"complete"`
		Missing  []string `json:"missing"`
		Prompts  []string `json:"prompts"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if out.Complete {
		t.Error("record should be incomplete")
	}
	if len(out.Missing) != 3 {
		t.Errorf("Missing = %v, want 3 fields", out.Missing)
	}
	foundShot := false
	for _, p := range out.Prompts {
		if strings.Contains(p, "single or double") {
			foundShot = true
		}
	}
	if !foundShot {
		t.Errorf("Prompts = %v, want espresso shot wording", out.Prompts)
	}
}

func TestMCPFinalizeRecord(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.CoffeeOrder())
	sess.Record.Update(map[string]any{
		"drinkType": "latte", "size": "medium", "milk": "oat", "name": "Amit",
	})

	handler := mcpFinalizeRecord(deps)
	result, err := handler(context.Background(), makeCallToolRequest("finalize_record",
		map[string]interface{}{"session_id": sess.ID}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	entries, err := deps.Journal.LoadRecent(0)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("journal has %d entries, want 1", len(entries))
	}
}

func TestMCPFinalizeIncomplete(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.CoffeeOrder())

	handler := mcpFinalizeRecord(deps)
	result, err := handler(context.Background(), makeCallToolRequest("finalize_record",
		map[string]interface{}{"session_id": sess.ID}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for incomplete record")
	}
	if !strings.Contains(resultText(t, result), "missing") {
		t.Errorf("error should list missing fields: %s", resultText(t, result))
	}
}

func TestMCPLookupCatalog(t *testing.T) {
	deps := setupMCPDeps(t)
	handler := mcpLookupCatalog(deps)

	result, err := handler(context.Background(), makeCallToolRequest("lookup_catalog",
		map[string]interface{}{"query": "bread"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var results []struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &results); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Sourdough Bread" {
		t.Errorf("results = %v", results)
	}
}

func TestMCPLookupNoMatchIsNotToolError(t *testing.T) {
	deps := setupMCPDeps(t)
	handler := mcpLookupCatalog(deps)

	result, err := handler(context.Background(), makeCallToolRequest("lookup_catalog",
		map[string]interface{}{"query": "spaceship"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	// No match is an answer for the agent to relay, not a failure.
	if result.IsError {
		t.Error("no-match should not be a tool error")
	}
	if !strings.Contains(resultText(t, result), "No catalog item") {
		t.Errorf("text = %s", resultText(t, result))
	}
}

func TestMCPCartFlow(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.GroceryOrder())

	add := mcpCartAdd(deps)
	result, err := add(context.Background(), makeCallToolRequest("cart_add",
		map[string]interface{}{
			"session_id": sess.ID,
			"name":       "Bananas",
			"quantity":   2.0,
			"unit_price": 2.8,
			"unit":       "kg",
		}))
	if err != nil {
		t.Fatalf("cart_add error: %v", err)
	}
	if result.IsError {
		t.Fatalf("cart_add tool error: %s", resultText(t, result))
	}

	result, err = add(context.Background(), makeCallToolRequest("cart_add",
		map[string]interface{}{
			"session_id": sess.ID,
			"name":       "bananas",
			"quantity":   3.0,
			"unit_price": 9.99,
		}))
	if err != nil {
		t.Fatalf("cart_add error: %v", err)
	}

	var view cartView
	if err := json.Unmarshal([]byte(resultText(t, result)), &view); err != nil {
		t.Fatalf("decoding cart: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 5 {
		t.Errorf("cart = %+v, want one merged line of 5", view)
	}
	if view.Total != 14 {
		t.Errorf("Total = %v, want 14", view.Total)
	}

	setQty := mcpCartSetQuantity(deps)
	result, err = setQty(context.Background(), makeCallToolRequest("cart_set_quantity",
		map[string]interface{}{"session_id": sess.ID, "name": "Bananas", "quantity": 0.0}))
	if err != nil {
		t.Fatalf("cart_set_quantity error: %v", err)
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &view); err != nil {
		t.Fatalf("decoding cart: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Errorf("cart should be empty after zero quantity, got %+v", view)
	}
}

func TestMCPCartRemoveUnknown(t *testing.T) {
	deps := setupMCPDeps(t)
	sess := deps.Sessions.Create(schema.GroceryOrder())

	handler := mcpCartRemove(deps)
	result, err := handler(context.Background(), makeCallToolRequest("cart_remove",
		map[string]interface{}{"session_id": sess.ID, "name": "ghost"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown line")
	}
}

func TestMCPFindFraudCase(t *testing.T) {
	deps := setupMCPDeps(t)
	if _, err := deps.Cases.Seed(casefile.SampleCases()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	handler := mcpFindFraudCase(deps)
	result, err := handler(context.Background(), makeCallToolRequest("find_fraud_case",
		map[string]interface{}{"name": "amit"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Amit Patel") {
		t.Errorf("result = %s", text)
	}
	if strings.Contains(text, "Delhi") {
		t.Error("security answer must not appear in tool output")
	}
}

func TestMCPFindFraudCaseNoMatch(t *testing.T) {
	deps := setupMCPDeps(t)

	handler := mcpFindFraudCase(deps)
	result, err := handler(context.Background(), makeCallToolRequest("find_fraud_case",
		map[string]interface{}{"name": "nobody"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Error("no-match should not be a tool error")
	}
	if !strings.Contains(resultText(t, result), "No case found") {
		t.Errorf("text = %s", resultText(t, result))
	}
}

func TestMCPResolveFraudCase(t *testing.T) {
	deps := setupMCPDeps(t)
	if _, err := deps.Cases.Seed(casefile.SampleCases()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	handler := mcpResolveFraudCase(deps)
	result, err := handler(context.Background(), makeCallToolRequest("resolve_fraud_case",
		map[string]interface{}{
			"security_identifier": "12345",
			"status":              "escalated",
			"outcome":             "Customer did not recognize the charge",
		}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	c, err := deps.Cases.GetByIdentifier("12345")
	if err != nil {
		t.Fatalf("GetByIdentifier: %v", err)
	}
	if c.Status != casefile.StatusEscalated {
		t.Errorf("Status = %q, want escalated", c.Status)
	}
}

func TestMCPResolveFraudCaseValidatesStatus(t *testing.T) {
	deps := setupMCPDeps(t)

	handler := mcpResolveFraudCase(deps)
	result, err := handler(context.Background(), makeCallToolRequest("resolve_fraud_case",
		map[string]interface{}{
			"security_identifier": "12345",
			"status":              "pending_review",
			"outcome":             "x",
		}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for invalid status")
	}
}

func TestMCPResourceRecentOrders(t *testing.T) {
	deps := setupMCPDeps(t)
	if _, err := deps.Journal.Append("coffee_order", map[string]any{"name": "Amit"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	handler := mcpResourceRecentOrders(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("voxdesk://orders/recent"))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var entries []journal.Entry
	if err := json.Unmarshal([]byte(tc.Text), &entries); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestMCPResourceCatalog(t *testing.T) {
	deps := setupMCPDeps(t)

	handler := mcpResourceCatalog(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("voxdesk://catalog"))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	tc := contents[0].(mcp.TextResourceContents)
	var items []catalog.Item
	if err := json.Unmarshal([]byte(tc.Text), &items); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items, want 2", len(items))
	}
}
