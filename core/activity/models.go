package activity

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// Tipos
const (
	TypeTask         = "Tarea"
	TypeExam         = "Examen"
	TypeProject      = "Proyecto"
	TypePresentation = "Presentacion"
	TypeLab          = "Laboratorio"
	TypeEssay        = "Ensayo"
)

// Prioridades
const (
	PriorityLow    = "Baja"
	PriorityMedium = "Media"
	PriorityHigh   = "Alta"
)

// Estados
const (
	StatusScheduled = "Programada"
	StatusPublished = "Publicada"
	StatusOpen      = "Abierta"
	StatusClosed    = "Cerrada"
	StatusCancelled = "Cancelada"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	Types      = []string{TypeTask, TypeExam, TypeProject, TypePresentation, TypeLab, TypeEssay}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
	Statuses   = []string{StatusScheduled, StatusPublished, StatusOpen, StatusClosed, StatusCancelled}
)

type Activity struct {
	ID           int64       `json:"id"`
	GrupoID      int64       `json:"grupo_id"`
	Titulo       string      `json:"titulo"`
	Descripcion  null.String `json:"descripcion"`
	FechaEntrega time.Time   `json:"fecha_entrega"`
	Tipo         string      `json:"tipo"`
	Prioridad    string      `json:"prioridad"`
	Estado       string      `json:"estado"`
	Porcentaje   float64     `json:"porcentaje"`
}

func (a Activity) RecordID() int64 { return a.ID }

// IsPending reports whether a is still expected to be delivered.
func (a Activity) IsPending() bool {
	return a.Estado != StatusClosed && a.Estado != StatusCancelled
}

// Form is the activity editor form. The due date and time are entered separately.
type Form struct {
	GrupoID     int64   `json:"grupo_id" validate:"required"`
	Titulo      string  `json:"titulo" validate:"notblank,max=200"`
	Descripcion string  `json:"descripcion"`
	Fecha       string  `json:"fecha" validate:"required,datetime=2006-01-02"`
	Hora        string  `json:"hora" validate:"required,datetime=15:04"`
	Tipo        string  `json:"tipo" validate:"required,oneof=Tarea Examen Proyecto Presentacion Laboratorio Ensayo"`
	Prioridad   string  `json:"prioridad" validate:"required,oneof=Baja Media Alta"`
	Estado      string  `json:"estado" validate:"required,oneof=Programada Publicada Abierta Cerrada Cancelada"`
	Porcentaje  float64 `json:"porcentaje" validate:"gte=0,lte=100"`
}

// NewForm returns the blank form of the CrearActividad page.
func NewForm() Form {
	return Form{Tipo: TypeTask, Prioridad: PriorityMedium, Estado: StatusScheduled, Hora: "23:59"}
}

// FormFrom fills a Form with the values of a, the due date split in loc.
func FormFrom(a Activity, loc *time.Location) Form {
	due := a.FechaEntrega.In(loc)
	return Form{
		GrupoID:     a.GrupoID,
		Titulo:      a.Titulo,
		Descripcion: a.Descripcion.String,
		Fecha:       due.Format(DateLayout),
		Hora:        due.Format(TimeLayout),
		Tipo:        a.Tipo,
		Prioridad:   a.Prioridad,
		Estado:      a.Estado,
		Porcentaje:  a.Porcentaje,
	}
}

// Validate cleans and validates f and returns its due date, read in loc.
func (f *Form) Validate(loc *time.Location) (time.Time, error) {
	f.Titulo = core.CleanString(f.Titulo)
	f.Descripcion = core.CleanString(f.Descripcion)
	f.Fecha = core.CleanString(f.Fecha)
	f.Hora = core.CleanString(f.Hora)
	f.Tipo = core.CleanString(f.Tipo)
	if f.Prioridad = core.CleanString(f.Prioridad); f.Prioridad == "" {
		f.Prioridad = PriorityMedium
	}
	if f.Estado = core.CleanString(f.Estado); f.Estado == "" {
		f.Estado = StatusScheduled
	}

	if err := core.ValidateStruct(f); err != nil {
		return time.Time{}, err
	}
	due, err := time.ParseInLocation(DateLayout+" "+TimeLayout, f.Fecha+" "+f.Hora, loc)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: "fecha", Error: invalidDateText})
	}
	return due, nil
}

// payload serializes f into the row shape of actividades, with the date and time joined into fecha_entrega.
func (f Form) payload(due time.Time) remote.Row {
	return remote.Row{
		"grupo_id":      f.GrupoID,
		"titulo":        f.Titulo,
		"descripcion":   null.NewString(f.Descripcion, f.Descripcion != ""),
		"fecha_entrega": due.UTC(),
		"tipo":          f.Tipo,
		"prioridad":     f.Prioridad,
		"estado":        f.Estado,
		"porcentaje":    f.Porcentaje,
	}
}

type QueryFilter struct {
	Search  string `query:"search"`
	Tipo    string `query:"tipo"`
	Estado  string `query:"estado"`
	GrupoID int64  `query:"grupo_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Tipo = core.CleanString(qf.Tipo)
	qf.Estado = core.CleanString(qf.Estado)
}

// Filter does a case-insensitive match of qf.Search on titulo or descripcion, ANDed with the exact-match filters.
func Filter(activities []Activity, qf QueryFilter) []Activity {
	qf.Clean()
	res := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if qf.Tipo != "" && a.Tipo != qf.Tipo {
			continue
		}
		if qf.Estado != "" && a.Estado != qf.Estado {
			continue
		}
		if qf.GrupoID != 0 && a.GrupoID != qf.GrupoID {
			continue
		}
		if core.MatchesAny(qf.Search, a.Titulo, a.Descripcion.String) {
			res = append(res, a)
		}
	}
	return res
}
