package http

import (
	"net/http"
	"strconv"

	"portfel/internal/core"
	"portfel/internal/services"
)

type cyclicForm struct {
	ID          int64
	Kind        core.Kind
	Name        string
	Amount      string
	StartDate   string
	NextDueDate string
	Period      core.Period
	SubBudgetID int64
	CategoryID  int64
}

type cyclicView struct {
	Templates  []core.CyclicView
	Form       cyclicForm
	Action     string
	Editing    bool
	Budgets    []core.SubBudget
	Categories services.CategoryLists
	Periods    []core.Period
}

var periods = []core.Period{core.Weekly, core.Monthly, core.Yearly}

func (s *Server) cyclicView(r *http.Request, a services.Actor) (cyclicView, error) {
	ctx := r.Context()
	budgets, err := s.svc.Budgets.List(ctx, a)
	if err != nil {
		return cyclicView{}, err
	}
	cats, err := s.svc.Categories.List(ctx, a)
	if err != nil {
		return cyclicView{}, err
	}
	return cyclicView{Budgets: budgets, Categories: cats, Periods: periods}, nil
}

func (s *Server) handleCyclicList(w http.ResponseWriter, r *http.Request, a services.Actor) {
	view, err := s.cyclicView(r, a)
	if err != nil {
		s.serverError(w, r, "cyclic_list", err)
		return
	}
	view.Templates, err = s.svc.Cyclic.List(r.Context(), a)
	if err != nil {
		s.serverError(w, r, "cyclic_list", err)
		return
	}
	view.Action = "/cyclic"
	view.Form = cyclicForm{
		Kind:        core.KindExpense,
		Period:      core.Monthly,
		StartDate:   s.today().String(),
		SubBudgetID: a.ActiveBudgetID,
	}
	s.render(w, r, "cyclic.html", view)
}

func (s *Server) handleCreateCyclic(w http.ResponseWriter, r *http.Request, a services.Actor) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/cyclic").Error("Invalid form.").Write(w, r)
		return
	}
	c, err := ParseCyclicForm(r.PostForm, a, s.today())
	if err != nil {
		s.fail(w, r, "/cyclic", "create_cyclic", err)
		return
	}
	if _, err := s.svc.Cyclic.Create(r.Context(), a, c); err != nil {
		s.fail(w, r, "/cyclic", "create_cyclic", err)
		return
	}
	s.redirect("/cyclic").Success("Cyclic transaction saved. It is booked from " + c.StartDate.String() + ".").Write(w, r)
}

func (s *Server) handleEditCyclicForm(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := s.svc.Cyclic.Get(r.Context(), a, id)
	if isMissing(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, "edit_cyclic_form", err)
		return
	}

	view, err := s.cyclicView(r, a)
	if err != nil {
		s.serverError(w, r, "edit_cyclic_form", err)
		return
	}
	view.Editing = true
	view.Action = "/cyclic/" + strconv.FormatInt(id, 10) + "/edit"
	view.Form = cyclicForm{
		ID:          c.ID,
		Kind:        c.Kind,
		Name:        c.Name,
		Amount:      core.FormatAmount(c.Amount),
		StartDate:   c.StartDate.String(),
		NextDueDate: c.NextDueDate.String(),
		Period:      c.Period,
		SubBudgetID: c.SubBudgetID,
		CategoryID:  c.CategoryID,
	}
	s.render(w, r, "cyclic.html", view)
}

func (s *Server) handleEditCyclic(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := "/cyclic/" + strconv.FormatInt(id, 10) + "/edit"
	if err := r.ParseForm(); err != nil {
		s.redirect(back).Error("Invalid form.").Write(w, r)
		return
	}
	c, err := ParseCyclicForm(r.PostForm, a, s.today())
	if err != nil {
		s.fail(w, r, back, "edit_cyclic", err)
		return
	}
	if err := s.svc.Cyclic.Update(r.Context(), a, id, c); err != nil {
		s.fail(w, r, back, "edit_cyclic", err)
		return
	}
	s.redirect("/cyclic").Success("Cyclic transaction updated.").Write(w, r)
}

func (s *Server) handleDeleteCyclic(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := s.svc.Cyclic.Delete(r.Context(), a, id); err != nil {
		s.fail(w, r, "/cyclic", "delete_cyclic", err)
		return
	}
	s.redirect("/cyclic").Success("Cyclic transaction deleted.").Write(w, r)
}
