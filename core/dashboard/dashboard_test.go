package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/activity"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/group"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	students := []student.Student{
		{ID: 1, Estado: student.StatusActive},
		{ID: 2, Estado: student.StatusActive},
		{ID: 3, Estado: student.StatusInactive},
	}
	activities := []activity.Activity{
		{ID: 1, Estado: activity.StatusOpen, FechaEntrega: now.Add(72 * time.Hour)},
		{ID: 2, Estado: activity.StatusPublished, FechaEntrega: now.Add(time.Hour)},
		{ID: 3, Estado: activity.StatusClosed, FechaEntrega: now.Add(time.Hour)},
		{ID: 4, Estado: activity.StatusCancelled, FechaEntrega: now.Add(2 * time.Hour)},
		{ID: 5, Estado: activity.StatusScheduled, FechaEntrega: now.Add(8 * 24 * time.Hour)},
		{ID: 6, Estado: activity.StatusOpen, FechaEntrega: now.Add(-time.Hour)},
	}

	sum := dashboard.Summarize(students, activities, now)
	assert.Equal(t, dashboard.StudentCounts{Total: 3, Active: 2, Inactive: 1}, sum.Students)
	assert.Equal(t, map[string]int{
		activity.StatusScheduled: 1,
		activity.StatusPublished: 1,
		activity.StatusOpen:      2,
		activity.StatusClosed:    1,
		activity.StatusCancelled: 1,
	}, sum.Activities)

	ids := make([]int64, 0)
	for _, a := range sum.Upcoming {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int64{2, 1}, ids)
}

func TestSummarize_Empty(t *testing.T) {
	sum := dashboard.Summarize(nil, nil, time.Now())
	assert.Zero(t, sum.Students.Total)
	assert.Len(t, sum.Activities, len(activity.Statuses))
	assert.NotNil(t, sum.Upcoming)
}

func TestService_Summary(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.CreateStudent(t, db, "Ana Ruiz", "ana@uni.edu", "Sistemas", 3, student.StatusActive)
	testutil.CreateStudent(t, db, "Juan Perez", "juan@uni.edu", "Civil", 5, student.StatusInactive)
	grupoID := testutil.CreateGroup(t, db, testutil.CreateCourse(t, db, "MAT101", "Cálculo I"), "2024-1", 0)
	testutil.CreateActivity(t, db, grupoID, "Parcial", activity.TypeExam, activity.StatusPublished, time.Now().Add(24*time.Hour), 30)

	groups := group.NewService(db, course.NewService(db))
	users := user.NewService(db, role.NewService(db))
	svc := dashboard.NewService(
		student.NewService(db, nil),
		activity.NewService(db, groups, users, nil, core.NopLogger()),
	)

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Students.Active)
	assert.Equal(t, 1, sum.Students.Inactive)
	assert.Equal(t, 1, sum.Activities[activity.StatusPublished])
	require.Len(t, sum.Upcoming, 1)
	assert.Equal(t, "Parcial", sum.Upcoming[0].Titulo)
}

func TestService_SummaryCancelled(t *testing.T) {
	db := testutil.OpenDB(t)
	groups := group.NewService(db, course.NewService(db))
	svc := dashboard.NewService(
		student.NewService(db, nil),
		activity.NewService(db, groups, user.NewService(db, role.NewService(db)), nil, core.NopLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Summary(ctx)
	assert.Error(t, err)
}
