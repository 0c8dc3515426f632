// Package course reads the course catalog groups belong to.
package course

import (
	"context"

	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
)

type Course struct {
	ID     int64  `json:"id"`
	Codigo string `json:"codigo"`
	Nombre string `json:"nombre"`
}

func (c Course) RecordID() int64 { return c.ID }

// Label returns "CODIGO - Nombre".
func (c Course) Label() string {
	if c.Codigo == "" {
		return c.Nombre
	}
	return c.Codigo + " - " + c.Nombre
}

type Service struct {
	courses *crud.Adapter[Course]
}

func NewService(svc remote.Service, opts ...crud.Option) *Service {
	return &Service{courses: crud.New[Course](svc, remote.TableCourses, opts...)}
}

func (svc *Service) List(ctx context.Context) ([]Course, error) {
	return svc.courses.FetchAll(ctx, crud.FetchOptions{OrderBy: "codigo", Ascending: true})
}

func (svc *Service) Get(ctx context.Context, id int64) (Course, error) {
	return svc.courses.FetchByID(ctx, id)
}

func (svc *Service) Create(ctx context.Context, codigo, nombre string) (Course, error) {
	return svc.courses.Create(ctx, remote.Row{"codigo": codigo, "nombre": nombre})
}

// ByID indexes courses by id.
func ByID(courses []Course) map[int64]Course {
	m := make(map[int64]Course, len(courses))
	for _, c := range courses {
		m[c.ID] = c
	}
	return m
}
