// Package role manages the operator roles referenced by usuarios.rol_id.
package role

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
)

// DefaultRoles are inserted by `admin seed`.
var DefaultRoles = []string{"Administrador", "Coordinador", "Profesor"}

type Role struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

func (r Role) RecordID() int64 { return r.ID }

type Service struct {
	roles *crud.Adapter[Role]
}

func NewService(svc remote.Service, opts ...crud.Option) *Service {
	return &Service{roles: crud.New[Role](svc, remote.TableRoles, opts...)}
}

func (svc *Service) List(ctx context.Context) ([]Role, error) {
	return svc.roles.FetchAll(ctx, crud.FetchOptions{OrderBy: "nombre", Ascending: true})
}

// Exists reports whether a role with id exists.
func (svc *Service) Exists(ctx context.Context, id int64) (bool, error) {
	if _, err := svc.roles.FetchByID(ctx, id); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Seed inserts every name of DefaultRoles that does not exist yet and returns the number inserted.
func (svc *Service) Seed(ctx context.Context) (int, error) {
	existing, err := svc.List(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[core.CleanString(r.Nombre, true)] = true
	}

	var n int
	for _, name := range DefaultRoles {
		if have[core.CleanString(name, true)] {
			continue
		}
		if _, err = svc.roles.Create(ctx, remote.Row{"nombre": name}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Names maps role ids to names.
func Names(roles []Role) map[int64]string {
	names := make(map[int64]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Nombre
	}
	return names
}
