package group_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/group"
	"github.com/trezcool/academia/tests"
)

func TestLabels(t *testing.T) {
	courses := []course.Course{{ID: 1, Codigo: "MAT101", Nombre: "Cálculo I"}, {ID: 2, Nombre: "Taller"}}
	groups := []group.Group{
		{ID: 10, CursoID: 1, Semestre: "2024-1"},
		{ID: 11, CursoID: 2},
		{ID: 12, CursoID: 99, Semestre: "2024-2"},
	}
	assert.Equal(t, []group.Option{
		{ID: 10, Label: "MAT101 - Cálculo I (2024-1)"},
		{ID: 11, Label: "Taller"},
		{ID: 12, Label: "Grupo 12 (2024-2)"},
	}, group.Labels(groups, courses))
}

func TestService(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	courses := course.NewService(db)
	svc := group.NewService(db, courses)

	c, err := courses.Create(ctx, "FIS201", "Física II")
	require.NoError(t, err)
	g, err := svc.Create(ctx, c.ID, "2024-1", null.Int64{})
	require.NoError(t, err)
	assert.False(t, g.ProfesorID.Valid)

	opts, err := svc.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []group.Option{{ID: g.ID, Label: "FIS201 - Física II (2024-1)"}}, opts)

	ok, err := svc.Exists(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Exists(ctx, g.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}
