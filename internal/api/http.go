package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxdesk/voxdesk/internal/cart"
	"github.com/voxdesk/voxdesk/internal/casefile"
	"github.com/voxdesk/voxdesk/internal/journal"
	"github.com/voxdesk/voxdesk/internal/lookup"
	"github.com/voxdesk/voxdesk/internal/schema"
	"github.com/voxdesk/voxdesk/internal/session"
)

const maxBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Sessions *session.Manager
	Journal  *journal.Journal
	Index    *lookup.Index
	Cases    *casefile.Store // optional; case routes 404 without it
	Preset   string          // default schema preset for new sessions
	TopK     int             // default lookup result cap
	Token    string
}

// RecordView is the state of a session record returned after every mutation,
// so a voice agent always knows what to ask for next.
type RecordView struct {
	ID       string            `json:"id"`
	Schema   string            `json:"schema"`
	Complete bool              `json:"complete"`
	Missing  []string          `json:"missing"`
	Prompts  []string          `json:"prompts"`
	Fields   map[string]any    `json:"fields"`
	Rejected map[string]string `json:"rejected,omitempty"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Post("/sessions", handleCreateSession(deps))
	r.Get("/sessions/{id}", handleGetSession(deps))
	r.Post("/sessions/{id}/record", handleUpdateRecord(deps))
	r.Post("/sessions/{id}/finalize", handleFinalize(deps))
	r.Delete("/sessions/{id}", handleAbandonSession(deps))

	r.Post("/sessions/{id}/cart/items", handleCartAdd(deps))
	r.Patch("/sessions/{id}/cart/items/{name}", handleCartSetQuantity(deps))
	r.Delete("/sessions/{id}/cart/items/{name}", handleCartRemove(deps))
	r.Get("/sessions/{id}/cart", handleCartGet(deps))
	r.Delete("/sessions/{id}/cart", handleCartClear(deps))

	r.Get("/orders", handleListOrders(deps))
	r.Get("/lookup", handleLookup(deps))

	r.Get("/cases", handleListCases(deps))
	r.Get("/cases/{sid}", handleGetCase(deps))
	r.Post("/cases/{sid}/outcome", handleCaseOutcome(deps))

	return r
}

func recordView(s *session.Session, rejected map[string]string) RecordView {
	return RecordView{
		ID:       s.ID,
		Schema:   s.Record.Schema().Name,
		Complete: s.Record.IsComplete(),
		Missing:  s.Record.MissingFields(),
		Prompts:  s.Record.MissingPrompts(),
		Fields:   s.Record.Snapshot(),
		Rejected: rejected,
	}
}

func handleCreateSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req struct {
			Schema string `json:"schema"`
		}
		// An absent or empty body means the default preset.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		name := req.Schema
		if name == "" {
			name = deps.Preset
		}

		sch, err := schema.Preset(name)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown schema %q", name)
			return
		}

		sess := deps.Sessions.Create(sch)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(recordView(sess, nil))
	}
}

func handleGetSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeJSON(w, recordView(sess, nil))
	}
}

func handleUpdateRecord(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
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
		writeJSON(w, recordView(sess, rejected))
	}
}

func handleFinalize(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := deps.Sessions.Get(id)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}

		receipt, err := deps.Sessions.Finalize(id)
		if err != nil {
			if errors.Is(err, session.ErrIncompleteRecord) {
				httpError(w, http.StatusConflict, "incomplete_record", "record incomplete, missing: %v", sess.Record.MissingFields())
				return
			}
			var pe *journal.PersistenceError
			if errors.As(err, &pe) {
				httpError(w, http.StatusInternalServerError, "persistence_error", "failed to save record: %v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "finalize failed: %v", err)
			return
		}
		writeJSON(w, receipt)
	}
}

func handleAbandonSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sessions.Close(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

type cartAddRequest struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Unit      string  `json:"unit"`
}

type cartView struct {
	Lines []cart.Line `json:"lines"`
	Total float64     `json:"total"`
}

func viewCart(c *cart.Manager) cartView {
	return cartView{Lines: c.Lines(), Total: c.Total()}
}

func handleCartAdd(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}

		var req cartAddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}

		if _, err := sess.Cart.AddItem(req.Name, req.Quantity, req.UnitPrice, req.Unit); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, viewCart(sess.Cart))
	}
}

func handleCartSetQuantity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}

		var req struct {
			Quantity float64 `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := sess.Cart.UpdateQuantity(chi.URLParam(r, "name"), req.Quantity); err != nil {
			if errors.Is(err, cart.ErrLineNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "no such cart line")
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, viewCart(sess.Cart))
	}
}

func handleCartRemove(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}

		if err := sess.Cart.RemoveItem(chi.URLParam(r, "name")); err != nil {
			httpError(w, http.StatusNotFound, "not_found", "no such cart line")
			return
		}
		writeJSON(w, viewCart(sess.Cart))
	}
}

func handleCartGet(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeJSON(w, viewCart(sess.Cart))
	}
}

func handleCartClear(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		sess.Cart.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListOrders(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = n
		}

		entries, err := deps.Journal.LoadRecent(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "persistence_error", "failed to load orders: %v", err)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, entries)
	}
}

func handleLookup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		topK := deps.TopK
		if s := r.URL.Query().Get("k"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "k must be a positive integer")
				return
			}
			topK = n
		}

		matches, err := deps.Index.Search(q, topK)
		if err != nil {
			if errors.Is(err, lookup.ErrNoMatch) {
				httpError(w, http.StatusNotFound, "no_match", "no catalog item matches %q", q)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "lookup failed: %v", err)
			return
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
		writeJSON(w, results)
	}
}

type caseView struct {
	UserName            string `json:"user_name"`
	SecurityIdentifier  string `json:"security_identifier"`
	SecurityQuestion    string `json:"security_question"`
	CardEnding          string `json:"card_ending"`
	Status              string `json:"status"`
	TransactionAmount   string `json:"transaction_amount"`
	TransactionName     string `json:"transaction_name"`
	TransactionTime     string `json:"transaction_time"`
	TransactionCategory string `json:"transaction_category"`
	TransactionSource   string `json:"transaction_source"`
	TransactionLocation string `json:"transaction_location"`
	Outcome             string `json:"outcome,omitempty"`
}

// viewCase omits the security answer; verification happens on the agent side
// and the answer must never leave the service wholesale.
func viewCase(c casefile.Case) caseView {
	return caseView{
		UserName:            c.UserName,
		SecurityIdentifier:  c.SecurityIdentifier,
		SecurityQuestion:    c.SecurityQuestion,
		CardEnding:          c.CardEnding,
		Status:              c.Status,
		TransactionAmount:   c.TransactionAmount,
		TransactionName:     c.TransactionName,
		TransactionTime:     c.TransactionTime,
		TransactionCategory: c.TransactionCategory,
		TransactionSource:   c.TransactionSource,
		TransactionLocation: c.TransactionLocation,
		Outcome:             c.Outcome,
	}
}

func handleListCases(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cases == nil {
			httpError(w, http.StatusNotFound, "not_found", "case store not configured")
			return
		}

		var (
			cases []casefile.Case
			err   error
		)
		if name := r.URL.Query().Get("name"); name != "" {
			cases, err = deps.Cases.SearchByName(name)
		} else {
			cases, err = deps.Cases.List(50)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "persistence_error", "failed to list cases: %v", err)
			return
		}

		views := make([]caseView, len(cases))
		for i, c := range cases {
			views[i] = viewCase(c)
		}
		writeJSON(w, views)
	}
}

func handleGetCase(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cases == nil {
			httpError(w, http.StatusNotFound, "not_found", "case store not configured")
			return
		}

		c, err := deps.Cases.GetByIdentifier(chi.URLParam(r, "sid"))
		if err != nil {
			if errors.Is(err, casefile.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "case not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "persistence_error", "failed to load case: %v", err)
			return
		}
		writeJSON(w, viewCase(c))
	}
}

func handleCaseOutcome(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		if deps.Cases == nil {
			httpError(w, http.StatusNotFound, "not_found", "case store not configured")
			return
		}

		var req struct {
			Status  string `json:"status"`
			Outcome string `json:"outcome"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		switch req.Status {
		case casefile.StatusResolved, casefile.StatusEscalated:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "status must be %q or %q", casefile.StatusResolved, casefile.StatusEscalated)
			return
		}
		if req.Outcome == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "outcome is required")
			return
		}

		sid := chi.URLParam(r, "sid")
		if err := deps.Cases.UpdateOutcome(sid, req.Status, req.Outcome); err != nil {
			if errors.Is(err, casefile.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "case not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "persistence_error", "failed to update case: %v", err)
			return
		}

		c, err := deps.Cases.GetByIdentifier(sid)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "persistence_error", "updated but failed to reload case: %v", err)
			return
		}
		writeJSON(w, viewCase(c))
	}
}
