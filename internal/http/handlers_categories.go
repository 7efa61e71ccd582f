package http

import (
	"net/http"

	"portfel/internal/core"
	"portfel/internal/services"
)

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request, a services.Actor) {
	cats, err := s.svc.Categories.List(r.Context(), a)
	if err != nil {
		s.serverError(w, r, "category_list", err)
		return
	}
	s.render(w, r, "categories.html", cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, a services.Actor) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/categories").Error("Invalid form.").Write(w, r)
		return
	}
	c, err := ParseCategoryForm(r.PostForm)
	if err != nil {
		s.fail(w, r, "/categories", "create_category", err)
		return
	}
	if _, err := s.svc.Categories.Create(r.Context(), a, c); err != nil {
		s.fail(w, r, "/categories", "create_category", err)
		return
	}
	s.redirect("/categories").Success("Category " + c.Name + " added.").Write(w, r)
}

func (s *Server) handleEditCategoryForm(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), a, id)
	if isMissing(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, "edit_category_form", err)
		return
	}
	if c.System {
		s.redirect("/categories").Error(userMessage(core.ErrSystemCategory)).Write(w, r)
		return
	}
	s.render(w, r, "category_form.html", c)
}

func (s *Server) handleEditCategory(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.redirect("/categories").Error("Invalid form.").Write(w, r)
		return
	}
	name := sanitizeInput(r.PostForm.Get("name"))
	desc := sanitizeInput(r.PostForm.Get("description"))
	if err := s.svc.Categories.Update(r.Context(), a, id, name, desc); err != nil {
		s.fail(w, r, r.URL.Path, "edit_category", err)
		return
	}
	s.redirect("/categories").Success("Category updated.").Write(w, r)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), a, id); err != nil {
		s.fail(w, r, "/categories", "delete_category", err)
		return
	}
	s.redirect("/categories").Success("Category deleted.").Write(w, r)
}
