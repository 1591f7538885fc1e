package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type schoolApi struct {
	svc *school.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service) {
	api := schoolApi{svc: svc}
	admin := adminMiddleware()
	staff := kindMiddleware(user.KindAdmin, user.KindTeacher)

	ag := g.Group("", jwt)

	ag.POST("/classes", api.createClass, admin)
	ag.GET("/classes", api.listClasses)

	ag.POST("/subjects", api.createSubject, admin)
	ag.GET("/subjects", api.listSubjects)

	ag.POST("/classrooms", api.createClassroom, admin)
	ag.GET("/classrooms", api.listClassrooms, staff)

	ag.POST("/teachers", api.createMember(school.MemberTeacher), admin)
	ag.GET("/teachers", api.listMembers(school.MemberTeacher), staff)

	ag.POST("/parents", api.createMember(school.MemberParent), admin)
	ag.GET("/parents", api.listMembers(school.MemberParent), admin)

	ag.POST("/students", api.createStudent, admin)
	ag.GET("/students", api.listStudents)
	ag.GET("/students/:id", api.retrieveStudent)
	ag.PUT("/students/:id", api.updateStudent, admin)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data school.NewClass
	if err := bind(ctx, &data, "NewClass"); err != nil {
		return err
	}
	c, err := api.svc.CreateClass(ctx.Request().Context(), p.Ident().SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *schoolApi) listClasses(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.ListClasses(ctx.Request().Context(), p.Ident().SchoolID)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) createSubject(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data school.NewSubject
	if err := bind(ctx, &data, "NewSubject"); err != nil {
		return err
	}
	s, err := api.svc.CreateSubject(ctx.Request().Context(), p.Ident().SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *schoolApi) listSubjects(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.svc.ListSubjects(ctx.Request().Context(), p.Ident().SchoolID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolApi) createClassroom(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data school.NewClassroom
	if err := bind(ctx, &data, "NewClassroom"); err != nil {
		return err
	}
	c, err := api.svc.CreateClassroom(ctx.Request().Context(), p.Ident().SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *schoolApi) listClassrooms(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	rooms, err := api.svc.ListClassrooms(ctx.Request().Context(), p.Ident().SchoolID)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if rooms == nil {
		rooms = []school.Classroom{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *schoolApi) createMember(kind school.MemberKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return err
		}
		var data school.NewMember
		if err := bind(ctx, &data, "NewMember"); err != nil {
			return err
		}
		m, err := api.svc.CreateMember(ctx.Request().Context(), kind, p.Ident().SchoolID, data)
		if err != nil {
			return errors.Wrapf(err, "creating %s", kind)
		}
		return ctx.JSON(http.StatusCreated, m)
	}
}

func (api *schoolApi) listMembers(kind school.MemberKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return err
		}
		members, err := api.svc.ListMembers(ctx.Request().Context(), kind, p.Ident().SchoolID)
		if err != nil {
			return errors.Wrapf(err, "querying %ss", kind)
		}
		if members == nil {
			members = []school.Member{}
		}
		return ctx.JSON(http.StatusOK, members)
	}
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data school.NewStudent
	if err := bind(ctx, &data, "NewStudent"); err != nil {
		return err
	}
	st, err := api.svc.CreateStudent(ctx.Request().Context(), p.Ident().SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

// listStudents lists the students of the school for staff, a parent's children for parents.
func (api *schoolApi) listStudents(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter school.StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	filter.SchoolID = p.Ident().SchoolID

	switch p := p.(type) {
	case user.Parent:
		filter.ParentID = p.ParentID
	case user.Student:
		st, err := api.svc.GetStudent(ctx.Request().Context(), p.SchoolID, p.StudentID)
		if err != nil {
			return errors.Wrap(err, "finding student")
		}
		return ctx.JSON(http.StatusOK, []school.Student{st})
	}

	students, err := api.svc.ListStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	ok, err := api.svc.CanSeeStudent(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "checking student visibility")
	}
	if !ok {
		return school.ErrStudentNotFound
	}
	st, err := api.svc.GetStudent(ctx.Request().Context(), p.Ident().SchoolID, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data school.UpdateStudent
	if err := bind(ctx, &data, "UpdateStudent"); err != nil {
		return err
	}
	st, err := api.svc.UpdateStudent(ctx.Request().Context(), p.Ident().SchoolID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}
