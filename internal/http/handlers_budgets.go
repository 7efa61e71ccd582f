package http

import (
	"net/http"

	"portfel/internal/core"
	plog "portfel/internal/log"
	"portfel/internal/services"
)

// handleCreateBudget adds a sub-budget and selects it.
func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, a services.Actor) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/").Error("Invalid form.").Write(w, r)
		return
	}
	name := sanitizeInput(r.PostForm.Get("name"))
	id, err := s.svc.Budgets.Create(r.Context(), a, name)
	if err != nil {
		s.fail(w, r, "/", "create_budget", err)
		return
	}
	if err := s.sessions.SetActiveBudget(r.Context(), sessionToken(r.Context()), id); err != nil {
		plog.FromContext(r.Context()).WarnContext(r.Context(), "Could not select new sub-budget",
			plog.FieldSubBudgetID, id, plog.FieldError, err)
	}
	s.redirect("/").Success("Sub-budget " + name + " created.").Write(w, r)
}

func (s *Server) handleSwitchBudget(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := backTo(r, "/")
	b, err := s.svc.Budgets.Get(r.Context(), a, id)
	if err != nil {
		s.fail(w, r, back, "switch_budget", err)
		return
	}
	if err := s.sessions.SetActiveBudget(r.Context(), sessionToken(r.Context()), b.ID); err != nil {
		s.fail(w, r, back, "switch_budget", err)
		return
	}
	s.redirect(back).Write(w, r)
}

func (s *Server) handleRenameBudget(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.redirect("/").Error("Invalid form.").Write(w, r)
		return
	}
	if err := s.svc.Budgets.Rename(r.Context(), a, id, sanitizeInput(r.PostForm.Get("name"))); err != nil {
		s.fail(w, r, "/", "rename_budget", err)
		return
	}
	s.redirect("/").Success("Sub-budget renamed.").Write(w, r)
}

// handleDeleteBudget removes a sub-budget. When it was the active one the
// next request falls back to the household's first sub-budget.
func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), a, id); err != nil {
		s.fail(w, r, "/", "delete_budget", err)
		return
	}
	if id == a.ActiveBudgetID {
		_ = s.sessions.SetActiveBudget(r.Context(), sessionToken(r.Context()), 0)
	}
	s.redirect("/").Success("Sub-budget deleted.").Write(w, r)
}

type transferView struct {
	Budgets []core.SubBudget
	From    int64
	Date    string
}

func (s *Server) handleTransferForm(w http.ResponseWriter, r *http.Request, a services.Actor) {
	budgets, err := s.svc.Budgets.List(r.Context(), a)
	if err != nil {
		s.serverError(w, r, "transfer_form", err)
		return
	}
	s.render(w, r, "transfer.html", transferView{Budgets: budgets, From: a.ActiveBudgetID, Date: s.today().String()})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, a services.Actor) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/transfer").Error("Invalid form.").Write(w, r)
		return
	}
	req, err := ParseTransferForm(r.PostForm, a, s.today())
	if err != nil {
		s.fail(w, r, "/transfer", plog.OpTransfer, err)
		return
	}
	if _, err := s.svc.Transactions.Transfer(r.Context(), a, req); err != nil {
		s.fail(w, r, "/transfer", plog.OpTransfer, err)
		return
	}
	s.redirect("/").Success("Transferred " + core.FormatAmount(req.Amount) + ".").Write(w, r)
}
