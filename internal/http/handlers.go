package http

import (
	"net/http"

	"github.com/salemadams/cash-dash/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := s.parser.ParseTransactionQuery(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), q)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := DecodeJSON(w, r, &tx); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/transactions/"+created.ID).
		Body(created).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := DecodeJSON(w, r, &tx); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	updated, err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), tx)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), month)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	NewJSONResponse().Body(budgets).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := ParseBudgetID(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	b, err := s.ledger.GetBudget(r.Context(), id)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := DecodeJSON(w, r, &b); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	created, err := s.ledger.CreateBudget(r.Context(), b)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := ParseBudgetID(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	var b core.Budget
	if err := DecodeJSON(w, r, &b); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	updated, err := s.ledger.UpdateBudget(r.Context(), id, b)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := ParseBudgetID(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), id); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleBudgetTransactions groups the month's transactions by budget id.
func (s *Server) handleBudgetTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	byID, err := s.dashboard.BudgetTransactions(r.Context(), month)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(byID).Write(w)
}
