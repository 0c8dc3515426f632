// Package dashboard aggregates the counters shown on the Dashboard page.
package dashboard

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/academia/core/activity"
	"github.com/trezcool/academia/core/student"
)

// UpcomingWindow is how far ahead Summary.Upcoming looks.
const UpcomingWindow = 7 * 24 * time.Hour

var nowFunc = time.Now

type (
	Service struct {
		students   *student.Service
		activities *activity.Service
	}

	StudentCounts struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Inactive int `json:"inactive"`
	}

	Summary struct {
		Students   StudentCounts       `json:"students"`
		Activities map[string]int      `json:"activities"` // by estado
		Upcoming   []activity.Activity `json:"upcoming"`
	}
)

func NewService(students *student.Service, activities *activity.Service) *Service {
	return &Service{students: students, activities: activities}
}

// Summary loads students and activities concurrently; the first failure cancels the other load.
func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		students   []student.Student
		activities []activity.Activity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = svc.students.All(gctx)
		return err
	})
	g.Go(func() (err error) {
		activities, err = svc.activities.All(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summarize(students, activities, nowFunc()), nil
}

// Summarize computes the dashboard counters as of now.
func Summarize(students []student.Student, activities []activity.Activity, now time.Time) Summary {
	sum := Summary{
		Activities: make(map[string]int, len(activity.Statuses)),
		Upcoming:   make([]activity.Activity, 0),
	}
	for _, st := range activity.Statuses {
		sum.Activities[st] = 0
	}

	sum.Students.Total = len(students)
	for _, s := range students {
		if s.IsActive() {
			sum.Students.Active++
		} else {
			sum.Students.Inactive++
		}
	}

	limit := now.Add(UpcomingWindow)
	for _, a := range activities {
		sum.Activities[a.Estado]++
		if a.IsPending() && !a.FechaEntrega.Before(now) && !a.FechaEntrega.After(limit) {
			sum.Upcoming = append(sum.Upcoming, a)
		}
	}
	sort.SliceStable(sum.Upcoming, func(i, j int) bool {
		return sum.Upcoming[i].FechaEntrega.Before(sum.Upcoming[j].FechaEntrega)
	})
	return sum
}
