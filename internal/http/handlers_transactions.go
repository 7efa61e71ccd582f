package http

import (
	"fmt"
	"net/http"
	"strconv"

	"portfel/internal/core"
	plog "portfel/internal/log"
	"portfel/internal/services"
)

// txForm holds the values a transaction form is filled with.
type txForm struct {
	ID          int64
	Kind        core.Kind
	Name        string
	Amount      string
	Date        string
	SubBudgetID int64
	CategoryID  int64
}

type transactionFormView struct {
	Title      string
	Action     string
	Form       txForm
	Budgets    []core.SubBudget
	Categories services.CategoryLists
}

func (s *Server) transactionFormView(r *http.Request, a services.Actor, title, action string, f txForm) (transactionFormView, error) {
	budgets, err := s.svc.Budgets.List(r.Context(), a)
	if err != nil {
		return transactionFormView{}, err
	}
	cats, err := s.svc.Categories.List(r.Context(), a)
	if err != nil {
		return transactionFormView{}, err
	}
	return transactionFormView{Title: title, Action: action, Form: f, Budgets: budgets, Categories: cats}, nil
}

func (s *Server) handleTransactionForm(w http.ResponseWriter, r *http.Request, a services.Actor) {
	kind := core.KindExpense
	if k, err := core.ParseKind(r.URL.Query().Get("kind")); err == nil {
		kind = k
	}
	f := txForm{Kind: kind, Date: s.today().String(), SubBudgetID: a.ActiveBudgetID}
	view, err := s.transactionFormView(r, a, "New transaction", "/transactions/new", f)
	if err != nil {
		s.serverError(w, r, "transaction_form", err)
		return
	}
	s.render(w, r, "transaction_form.html", view)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, a services.Actor) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/transactions/new").Error("Invalid form.").Write(w, r)
		return
	}
	back := "/transactions/new"
	if k, err := core.ParseKind(r.PostForm.Get("kind")); err == nil {
		back += "?kind=" + string(k)
	}
	t, err := ParseTransactionForm(r.PostForm, a, s.today())
	if err != nil {
		s.fail(w, r, back, "create_transaction", err)
		return
	}
	if _, err := s.svc.Transactions.Add(r.Context(), a, t); err != nil {
		s.fail(w, r, back, "create_transaction", err)
		return
	}
	logLedger(r, plog.OpCreate, t)
	s.redirect("/").Success(fmt.Sprintf("Saved %q (%s).", t.Name, core.FormatAmount(t.Amount))).Write(w, r)
}

func (s *Server) handleEditTransactionForm(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), a, id)
	if isMissing(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, "edit_transaction_form", err)
		return
	}
	if t.IsTransferLeg() {
		s.redirect("/history").Error(userMessage(core.ErrTransferLeg)).Write(w, r)
		return
	}

	f := txForm{
		ID:          t.ID,
		Kind:        t.Kind,
		Name:        t.Name,
		Amount:      core.FormatAmount(t.Amount),
		Date:        t.Date.String(),
		SubBudgetID: t.SubBudgetID,
		CategoryID:  t.CategoryID,
	}
	action := "/transactions/" + strconv.FormatInt(id, 10) + "/edit"
	view, err := s.transactionFormView(r, a, "Edit transaction", action, f)
	if err != nil {
		s.serverError(w, r, "edit_transaction_form", err)
		return
	}
	s.render(w, r, "transaction_form.html", view)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := "/transactions/" + strconv.FormatInt(id, 10) + "/edit"
	if err := r.ParseForm(); err != nil {
		s.redirect(back).Error("Invalid form.").Write(w, r)
		return
	}
	t, err := ParseTransactionForm(r.PostForm, a, s.today())
	if err != nil {
		s.fail(w, r, back, "edit_transaction", err)
		return
	}
	if err := s.svc.Transactions.Edit(r.Context(), a, id, t); err != nil {
		s.fail(w, r, back, "edit_transaction", err)
		return
	}
	logLedger(r, plog.OpUpdate, t)
	s.redirect("/history").Success("Transaction updated.").Write(w, r)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := backTo(r, "/history")
	if err := s.svc.Transactions.Delete(r.Context(), a, id); err != nil {
		s.fail(w, r, back, "delete_transaction", err)
		return
	}
	s.redirect(back).Success("Transaction deleted.").Write(w, r)
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request, a services.Actor) {
	back := backTo(r, "/history")
	if err := s.svc.Transactions.DeleteTransfer(r.Context(), a, r.PathValue("ref")); err != nil {
		s.fail(w, r, back, "delete_transfer", err)
		return
	}
	s.redirect(back).Success("Transfer deleted.").Write(w, r)
}
