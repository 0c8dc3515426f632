package student

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// Estados
const (
	StatusActive   = "activo"
	StatusInactive = "inactivo"
)

type Student struct {
	ID       int64       `json:"id"`
	Nombre   string      `json:"nombre"`
	Correo   string      `json:"correo"`
	Carrera  string      `json:"carrera"`
	Semestre int         `json:"semestre"`
	Estado   string      `json:"estado"`
	Avatar   null.String `json:"avatar"`
}

func (s Student) RecordID() int64 { return s.ID }

func (s Student) IsActive() bool { return s.Estado == StatusActive }

// Form is the create/update form of the Estudiantes page.
type Form struct {
	Nombre   string `json:"nombre" validate:"notblank"`
	Correo   string `json:"correo" validate:"required,correo"`
	Carrera  string `json:"carrera" validate:"notblank"`
	Semestre int    `json:"semestre" validate:"required,min=1,max=12"`
	Estado   string `json:"estado" validate:"required,oneof=activo inactivo"`
}

// FormFrom fills a Form with the values of s, for editing.
func FormFrom(s Student) Form {
	return Form{Nombre: s.Nombre, Correo: s.Correo, Carrera: s.Carrera, Semestre: s.Semestre, Estado: s.Estado}
}

func (f *Form) Validate() error {
	f.Nombre = core.CleanString(f.Nombre)
	f.Correo = core.CleanString(f.Correo, true /* lower */)
	f.Carrera = core.CleanString(f.Carrera)
	f.Estado = core.CleanString(f.Estado, true /* lower */)
	if f.Estado == "" {
		f.Estado = StatusActive
	}
	return core.ValidateStruct(f)
}

func (f Form) payload() remote.Row {
	return remote.Row{
		"nombre":   f.Nombre,
		"correo":   f.Correo,
		"carrera":  f.Carrera,
		"semestre": f.Semestre,
		"estado":   f.Estado,
	}
}

type QueryFilter struct {
	Search string `query:"search"`
	Estado string `query:"estado"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Estado = core.CleanString(qf.Estado, true /* lower */)
}

// Filter does a case-insensitive match of qf.Search on nombre, correo or carrera, ANDed with qf.Estado.
func Filter(students []Student, qf QueryFilter) []Student {
	qf.Clean()
	res := make([]Student, 0, len(students))
	for _, s := range students {
		if qf.Estado != "" && s.Estado != qf.Estado {
			continue
		}
		if core.MatchesAny(qf.Search, s.Nombre, s.Correo, s.Carrera) {
			res = append(res, s)
		}
	}
	return res
}
