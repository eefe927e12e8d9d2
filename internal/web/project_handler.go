// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/fundhub/fundhub/internal/project"
)

// ProjectService is the project API consumed by ProjectHandler.
// *project.Service implements it.
type ProjectService interface {
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, id ulid.ULID) (*project.Project, error)
	List(ctx context.Context, filter project.ListFilter) ([]*project.Project, error)
}

// createProjectBody has no creator field; the creator is always the caller.
type createProjectBody struct {
	Title       string     `json:"title" validate:"required,min=5,max=100"`
	Description string     `json:"description" validate:"max=1000"`
	GoalAmount  int64      `json:"goalAmount" validate:"required,min=1,max=1000000"`
	Deadline    *time.Time `json:"deadline"`
}

type projectData struct {
	Project *project.Project `json:"project"`
}

type projectsData struct {
	Projects []*project.Project `json:"projects"`
}

// ProjectHandler serves the project endpoints.
type ProjectHandler struct {
	service      ProjectService
	errs         errorResponder
	maxBodyBytes int64
}

// List returns projects, newest first.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, fieldErrs := parseListFilter(r)
	if len(fieldErrs) > 0 {
		writeValidation(w, fieldErrs...)
		return
	}

	projects, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Projects retrieved successfully",
		Data:    projectsData{Projects: projects},
	})
}

// Get returns one project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.ParseStrict(chi.URLParam(r, "id"))
	if err != nil {
		writeValidation(w, FieldError{Field: "id", Message: "must be a valid project ID"})
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Project retrieved successfully",
		Data:    projectData{Project: p},
	})
}

// Create stores a project owned by the caller.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createProjectBody
	if !decodeJSON(w, r, h.maxBodyBytes, &body) {
		return
	}

	p, err := h.service.Create(r.Context(), project.CreateRequest{
		Title:       body.Title,
		Description: body.Description,
		GoalAmount:  body.GoalAmount,
		Deadline:    body.Deadline,
	})
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Message: "Project created successfully",
		Data:    projectData{Project: p},
	})
}

func parseListFilter(r *http.Request) (project.ListFilter, []FieldError) {
	var (
		filter project.ListFilter
		errs   []FieldError
	)
	q := r.URL.Query()

	if raw := q.Get("creator"); raw != "" {
		id, err := ulid.ParseStrict(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "creator", Message: "must be a valid identity ID"})
		} else {
			filter.CreatorID = &id
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > project.MaxListLimit {
			errs = append(errs, FieldError{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(project.MaxListLimit)})
		} else {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be a non-negative integer"})
		} else {
			filter.Offset = n
		}
	}
	return filter, errs
}
