// Package group reads the course groups activities are assigned to.
package group

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
)

type Group struct {
	ID         int64      `json:"id"`
	Semestre   string     `json:"semestre"`
	CursoID    int64      `json:"curso_id"`
	ProfesorID null.Int64 `json:"profesor_id"`
}

func (g Group) RecordID() int64 { return g.ID }

// Option is a group as offered in a select box.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type Service struct {
	groups  *crud.Adapter[Group]
	courses *course.Service
}

func NewService(svc remote.Service, courses *course.Service, opts ...crud.Option) *Service {
	return &Service{groups: crud.New[Group](svc, remote.TableGroups, opts...), courses: courses}
}

func (svc *Service) List(ctx context.Context) ([]Group, error) {
	return svc.groups.FetchAll(ctx, crud.FetchOptions{OrderBy: "id", Ascending: true})
}

func (svc *Service) Get(ctx context.Context, id int64) (Group, error) {
	return svc.groups.FetchByID(ctx, id)
}

// Exists reports whether a group with id exists.
func (svc *Service) Exists(ctx context.Context, id int64) (bool, error) {
	if _, err := svc.groups.FetchByID(ctx, id); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) Create(ctx context.Context, cursoID int64, semestre string, profesorID null.Int64) (Group, error) {
	return svc.groups.Create(ctx, remote.Row{"curso_id": cursoID, "semestre": semestre, "profesor_id": profesorID})
}

// Options loads groups and courses concurrently and labels every group with its course.
func (svc *Service) Options(ctx context.Context) ([]Option, error) {
	groups := crud.Go(func() ([]Group, error) { return svc.List(ctx) })
	courses := crud.Go(func() ([]course.Course, error) { return svc.courses.List(ctx) })

	gs, err := groups.Wait()
	if err != nil {
		return nil, err
	}
	cs, err := courses.Wait()
	if err != nil {
		return nil, err
	}
	return Labels(gs, cs), nil
}

// Labels turns groups into Options labelled "CODIGO - Nombre (semestre)".
func Labels(groups []Group, courses []course.Course) []Option {
	byID := course.ByID(courses)
	opts := make([]Option, 0, len(groups))
	for _, g := range groups {
		label := fmt.Sprintf("Grupo %d", g.ID)
		if c, ok := byID[g.CursoID]; ok {
			label = c.Label()
		}
		if g.Semestre != "" {
			label = fmt.Sprintf("%s (%s)", label, g.Semestre)
		}
		opts = append(opts, Option{ID: g.ID, Label: label})
	}
	return opts
}
