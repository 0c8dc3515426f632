// Package student manages the estudiantes table.
package student

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
)

var (
	ErrNoAvatarStore = errors.New("el almacenamiento de avatares no está configurado")

	avatarTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
)

type (
	// AvatarStore stores avatar images and returns their public URL.
	AvatarStore interface {
		Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	}

	Service struct {
		students *crud.Adapter[Student]
		avatars  AvatarStore
	}

	// Listing is the Estudiantes page.
	Listing struct {
		Students []Student   `json:"students"`
		Filter   QueryFilter `json:"filter"`
		Total    int         `json:"total"`
		Active   int         `json:"active"`
	}
)

// NewService returns a Service; avatars may be nil.
func NewService(svc remote.Service, avatars AvatarStore, opts ...crud.Option) *Service {
	return &Service{students: crud.New[Student](svc, remote.TableStudents, opts...), avatars: avatars}
}

func (svc *Service) All(ctx context.Context) ([]Student, error) {
	return svc.students.FetchAll(ctx, crud.FetchOptions{OrderBy: "nombre", Ascending: true})
}

func (svc *Service) List(ctx context.Context, qf QueryFilter) (Listing, error) {
	all, err := svc.All(ctx)
	if err != nil {
		return Listing{}, err
	}
	qf.Clean()
	listing := Listing{Students: Filter(all, qf), Filter: qf, Total: len(all)}
	for _, s := range all {
		if s.IsActive() {
			listing.Active++
		}
	}
	return listing, nil
}

// Search filters the students of the last List without a remote call.
func (svc *Service) Search(qf QueryFilter) []Student {
	return Filter(svc.students.Items(), qf)
}

func (svc *Service) Get(ctx context.Context, id int64) (Student, error) {
	return svc.students.FetchByID(ctx, id)
}

func (svc *Service) checkEmail(ctx context.Context, correo string, exclID int64) error {
	s, err := svc.students.FetchOneBy(ctx, "correo", correo)
	switch {
	case err == nil && s.ID != exclID:
		return core.NewValidationError(nil, core.FieldError{Field: "correo", Error: "ya existe un estudiante con este correo"})
	case err != nil && errors.Cause(err) != core.ErrNotFound:
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, f Form) (Student, error) {
	if err := f.Validate(); err != nil {
		return Student{}, err
	}
	if err := svc.checkEmail(ctx, f.Correo, 0); err != nil {
		return Student{}, err
	}
	return svc.students.Create(ctx, f.payload())
}

func (svc *Service) Update(ctx context.Context, id int64, f Form) (Student, error) {
	if err := f.Validate(); err != nil {
		return Student{}, err
	}
	if err := svc.checkEmail(ctx, f.Correo, id); err != nil {
		return Student{}, err
	}
	return svc.students.Update(ctx, id, f.payload())
}

// Delete removes the student with id. Without confirmation nothing is sent to the remote service.
func (svc *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return core.ErrConfirmationRequired
	}
	_, err := svc.students.Remove(ctx, id)
	return err
}

// SetAvatar uploads an avatar image for the student with id and stores its URL.
func (svc *Service) SetAvatar(ctx context.Context, id int64, filename, contentType string, r io.Reader) (Student, error) {
	if svc.avatars == nil {
		return Student{}, ErrNoAvatarStore
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := avatarTypes[contentType]
	if !ok {
		return Student{}, core.NewValidationError(nil, core.FieldError{Field: "avatar", Error: "formato de imagen no soportado"})
	}
	if _, err := svc.Get(ctx, id); err != nil {
		return Student{}, err
	}

	key := fmt.Sprintf("avatars/estudiantes/%d/%s%s", id, strings.TrimSuffix(path.Base(filename), path.Ext(filename)), ext)
	url, err := svc.avatars.Upload(ctx, key, contentType, r)
	if err != nil {
		return Student{}, errors.Wrap(err, "uploading avatar")
	}
	return svc.students.Update(ctx, id, remote.Row{"avatar": url})
}
