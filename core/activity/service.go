// Package activity manages the actividades table and its editor.
package activity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/group"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/user"
)

var (
	groupNotFoundText = "el grupo seleccionado no existe"
	invalidDateText   = "la fecha o la hora no son válidas"
)

type (
	Service struct {
		activities *crud.Adapter[Activity]
		groups     *group.Service
		users      *user.Service
		mailSvc    core.EmailService
		logger     core.Logger
		loc        *time.Location
	}

	// Listing is the Actividades page.
	Listing struct {
		Activities []Activity     `json:"activities"`
		Groups     []group.Option `json:"groups"`
		Filter     QueryFilter    `json:"filter"`
		Total      int            `json:"total"`
	}

	// Editor is the EditarActividad (or CrearActividad, with a nil Activity) page.
	Editor struct {
		Activity   *Activity      `json:"activity,omitempty"`
		Form       Form           `json:"form"`
		Groups     []group.Option `json:"groups"`
		Types      []string       `json:"types"`
		Priorities []string       `json:"priorities"`
		Statuses   []string       `json:"statuses"`
	}
)

func NewService(
	svc remote.Service,
	groups *group.Service,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	opts ...crud.Option,
) *Service {
	return &Service{
		activities: crud.New[Activity](svc, remote.TableActivities, opts...),
		groups:     groups,
		users:      users,
		mailSvc:    mailSvc,
		logger:     logger,
		loc:        time.Local,
	}
}

// SetLocation sets the time zone due dates are entered in.
func (svc *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		svc.loc = loc
	}
}

func (svc *Service) All(ctx context.Context) ([]Activity, error) {
	return svc.activities.FetchAll(ctx, crud.FetchOptions{OrderBy: "fecha_entrega", Ascending: true})
}

// List loads activities and groups concurrently and applies qf to the activities.
func (svc *Service) List(ctx context.Context, qf QueryFilter) (Listing, error) {
	activities := crud.Go(func() ([]Activity, error) { return svc.All(ctx) })
	groups := crud.Go(func() ([]group.Option, error) { return svc.groups.Options(ctx) })

	all, err := activities.Wait()
	if err != nil {
		return Listing{}, err
	}
	opts, err := groups.Wait()
	if err != nil {
		return Listing{}, err
	}
	qf.Clean()
	return Listing{Activities: Filter(all, qf), Groups: opts, Filter: qf, Total: len(all)}, nil
}

// Search filters the activities of the last List without a remote call.
func (svc *Service) Search(qf QueryFilter) []Activity {
	return Filter(svc.activities.Items(), qf)
}

func (svc *Service) Get(ctx context.Context, id int64) (Activity, error) {
	return svc.activities.FetchByID(ctx, id)
}

// Editor loads the activity with id (none when id is 0) and the group options concurrently.
func (svc *Service) Editor(ctx context.Context, id int64) (Editor, error) {
	groups := crud.Go(func() ([]group.Option, error) { return svc.groups.Options(ctx) })

	ed := Editor{Form: NewForm(), Types: Types, Priorities: Priorities, Statuses: Statuses}
	if id != 0 {
		a, err := svc.Get(ctx, id)
		if err != nil {
			return Editor{}, err
		}
		ed.Activity = &a
		ed.Form = FormFrom(a, svc.loc)
	}

	opts, err := groups.Wait()
	if err != nil {
		return Editor{}, err
	}
	ed.Groups = opts
	return ed, nil
}

func (svc *Service) checkGroup(ctx context.Context, id int64) error {
	ok, err := svc.groups.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "grupo_id", Error: groupNotFoundText})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, f Form) (Activity, error) {
	due, err := f.Validate(svc.loc)
	if err != nil {
		return Activity{}, err
	}
	if err = svc.checkGroup(ctx, f.GrupoID); err != nil {
		return Activity{}, err
	}

	a, err := svc.activities.Create(ctx, f.payload(due))
	if err != nil {
		return Activity{}, err
	}
	if a.Estado == StatusPublished {
		svc.notifyPublished(ctx, a)
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, id int64, f Form) (Activity, error) {
	due, err := f.Validate(svc.loc)
	if err != nil {
		return Activity{}, err
	}
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if f.GrupoID != orig.GrupoID {
		if err = svc.checkGroup(ctx, f.GrupoID); err != nil {
			return Activity{}, err
		}
	}

	a, err := svc.activities.Update(ctx, id, f.payload(due))
	if err != nil {
		return Activity{}, err
	}
	if a.Estado == StatusPublished && orig.Estado != StatusPublished {
		svc.notifyPublished(ctx, a)
	}
	return a, nil
}

// Delete removes the activity with id. Without confirmation nothing is sent to the remote service.
func (svc *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return core.ErrConfirmationRequired
	}
	_, err := svc.activities.Remove(ctx, id)
	return err
}

// notifyPublished emails the professor of a's group, if any. Failures are logged only.
func (svc *Service) notifyPublished(ctx context.Context, a Activity) {
	if svc.mailSvc == nil {
		return
	}
	grp, err := svc.groups.Get(ctx, a.GrupoID)
	if err != nil {
		svc.logger.Error("notifying published activity", errors.Wrap(err, "getting group"))
		return
	}
	if !grp.ProfesorID.Valid {
		return
	}
	prof, err := svc.users.GetByID(ctx, grp.ProfesorID.Int64)
	if err != nil {
		svc.logger.Error("notifying published activity", errors.Wrap(err, "getting professor"))
		return
	}

	var body strings.Builder
	_, _ = fmt.Fprintf(&body, "Hola %s,\n\n", prof.FullName())
	_, _ = fmt.Fprintf(&body, "La actividad \"%s\" (%s) fue publicada.\n", a.Titulo, a.Tipo)
	_, _ = fmt.Fprintf(&body, "Fecha de entrega: %s\n", a.FechaEntrega.In(svc.loc).Format(DateLayout+" "+TimeLayout))
	_, _ = fmt.Fprintf(&body, "Porcentaje de la nota: %.0f%%\n", a.Porcentaje)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: prof.FullName(), Address: prof.Correo}},
		Subject:  "Actividad publicada: " + a.Titulo,
		Body:     body.String(),
		Category: core.MailCategoryActivity,
	})
}
