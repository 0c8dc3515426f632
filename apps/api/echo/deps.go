package echoapi

import (
	"net/http"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/activity"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/group"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

// Backend holds what the pages run on.
type Backend struct {
	Remote   remote.Service
	Session  *session.Adapter
	Mail     core.EmailService
	Avatars  student.AvatarStore // optional
	Hub      *chat.Hub
	Location *time.Location // of activity due dates; nil is time.Local
	Metrics  http.Handler   // optional
	CrudOpts []crud.Option
}

// NewServerDeps builds the page services over b.
func NewServerDeps(conf *core.Config, logger core.Logger, b Backend) ServerDeps {
	opts := append([]crud.Option{crud.WithLogger(logger)}, b.CrudOpts...)

	roles := role.NewService(b.Remote, opts...)
	users := user.NewService(b.Remote, roles, opts...)
	courses := course.NewService(b.Remote, opts...)
	groups := group.NewService(b.Remote, courses, opts...)
	students := student.NewService(b.Remote, b.Avatars, opts...)
	activities := activity.NewService(b.Remote, groups, users, b.Mail, logger, opts...)
	activities.SetLocation(b.Location)

	return ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Session:      b.Session,
		UserSvc:      users,
		RoleSvc:      roles,
		StudentSvc:   students,
		ActivitySvc:  activities,
		DashboardSvc: dashboard.NewService(students, activities),
		ChatSvc:      chat.NewService(b.Remote, b.Hub, opts...),
		Metrics:      b.Metrics,
	}
}
