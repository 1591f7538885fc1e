package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/school"
)

type (
	memberRow struct {
		ID        string      `db:"id"`
		Kind      string      `db:"kind"`
		SchoolID  string      `db:"school_id"`
		UserID    null.String `db:"user_id"`
		Name      string      `db:"name"`
		Email     null.String `db:"email"`
		CreatedAt time.Time   `db:"created_at"`
	}

	studentRow struct {
		ID        string      `db:"id"`
		SchoolID  string      `db:"school_id"`
		ClassID   string      `db:"class_id"`
		ParentID  null.String `db:"parent_id"`
		UserID    null.String `db:"user_id"`
		FirstName string      `db:"first_name"`
		LastName  string      `db:"last_name"`
		IsActive  bool        `db:"is_active"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}
)

var (
	memberColumns  = []string{"id", "kind", "school_id", "user_id", "name", "email", "created_at"}
	studentColumns = []string{
		"id", "school_id", "class_id", "parent_id", "user_id",
		"first_name", "last_name", "is_active", "created_at", "updated_at",
	}
)

func (r memberRow) member() school.Member {
	return school.Member{
		ID:        r.ID,
		Kind:      school.MemberKind(r.Kind),
		SchoolID:  r.SchoolID,
		UserID:    r.UserID.String,
		Name:      r.Name,
		Email:     r.Email.String,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r studentRow) student() school.Student {
	return school.Student{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		ClassID:   r.ClassID,
		ParentID:  r.ParentID.String,
		UserID:    r.UserID.String,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	s.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("school").Columns("id", "name", "created_at").Values(s.ID, s.Name, s.CreatedAt))
	return s, errors.Wrap(err, "inserting school")
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var s school.School
	err := get(ctx, repo.db, &s, psql.Select("id", "name", "created_at").From("school").Where(sq.Eq{"id": id}))
	return s, notFound(err, school.ErrSchoolNotFound)
}

func (repo *schoolRepository) QuerySchools(ctx context.Context) ([]school.School, error) {
	schools := make([]school.School, 0)
	err := selectAll(ctx, repo.db, &schools, psql.Select("id", "name", "created_at").From("school").OrderBy("name"))
	return schools, errors.Wrap(err, "querying schools")
}

func (repo *schoolRepository) CreateClass(ctx context.Context, c school.Class) (school.Class, error) {
	c.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("class").
		Columns("id", "school_id", "name", "academic_year", "created_at").
		Values(c.ID, c.SchoolID, c.Name, c.AcademicYear, c.CreatedAt))
	return c, errors.Wrap(err, "inserting class")
}

func (repo *schoolRepository) GetClass(ctx context.Context, schoolID, id string) (school.Class, error) {
	var c school.Class
	err := get(ctx, repo.db, &c, psql.Select("id", "school_id", "name", "academic_year", "created_at").
		From("class").Where(sq.Eq{"school_id": schoolID, "id": id}))
	return c, notFound(err, school.ErrClassNotFound)
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, schoolID string) ([]school.Class, error) {
	classes := make([]school.Class, 0)
	err := selectAll(ctx, repo.db, &classes, psql.Select("id", "school_id", "name", "academic_year", "created_at").
		From("class").Where(sq.Eq{"school_id": schoolID}).OrderBy("name"))
	return classes, errors.Wrap(err, "querying classes")
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, s school.Subject) (school.Subject, error) {
	s.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("subject").
		Columns("id", "school_id", "name", "coefficient", "created_at").
		Values(s.ID, s.SchoolID, s.Name, s.Coefficient, s.CreatedAt))
	return s, errors.Wrap(err, "inserting subject")
}

func (repo *schoolRepository) GetSubject(ctx context.Context, schoolID, id string) (school.Subject, error) {
	var s school.Subject
	err := get(ctx, repo.db, &s, psql.Select("id", "school_id", "name", "coefficient", "created_at").
		From("subject").Where(sq.Eq{"school_id": schoolID, "id": id}))
	return s, notFound(err, school.ErrSubjectNotFound)
}

func (repo *schoolRepository) QuerySubjects(ctx context.Context, schoolID string) ([]school.Subject, error) {
	subjects := make([]school.Subject, 0)
	err := selectAll(ctx, repo.db, &subjects, psql.Select("id", "school_id", "name", "coefficient", "created_at").
		From("subject").Where(sq.Eq{"school_id": schoolID}).OrderBy("name"))
	return subjects, errors.Wrap(err, "querying subjects")
}

func (repo *schoolRepository) CreateClassroom(ctx context.Context, c school.Classroom) (school.Classroom, error) {
	c.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("classroom").
		Columns("id", "school_id", "name", "capacity", "created_at").
		Values(c.ID, c.SchoolID, c.Name, c.Capacity, c.CreatedAt))
	return c, errors.Wrap(err, "inserting classroom")
}

func (repo *schoolRepository) GetClassroom(ctx context.Context, schoolID, id string) (school.Classroom, error) {
	var c school.Classroom
	err := get(ctx, repo.db, &c, psql.Select("id", "school_id", "name", "capacity", "created_at").
		From("classroom").Where(sq.Eq{"school_id": schoolID, "id": id}))
	return c, notFound(err, school.ErrClassroomNotFound)
}

func (repo *schoolRepository) QueryClassrooms(ctx context.Context, schoolID string) ([]school.Classroom, error) {
	classrooms := make([]school.Classroom, 0)
	err := selectAll(ctx, repo.db, &classrooms, psql.Select("id", "school_id", "name", "capacity", "created_at").
		From("classroom").Where(sq.Eq{"school_id": schoolID}).OrderBy("name"))
	return classrooms, errors.Wrap(err, "querying classrooms")
}

func (repo *schoolRepository) CreateMember(ctx context.Context, m school.Member) (school.Member, error) {
	m.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("member").Columns(memberColumns...).
		Values(m.ID, string(m.Kind), m.SchoolID, nullString(m.UserID), m.Name, nullString(m.Email), m.CreatedAt))
	return m, errors.Wrapf(err, "inserting %s", m.Kind)
}

func (repo *schoolRepository) GetMember(ctx context.Context, kind school.MemberKind, schoolID, id string) (school.Member, error) {
	var row memberRow
	err := get(ctx, repo.db, &row, psql.Select(memberColumns...).From("member").
		Where(sq.Eq{"kind": string(kind), "school_id": schoolID, "id": id}))
	if err != nil {
		return school.Member{}, notFound(err, school.MemberNotFound(kind))
	}
	return row.member(), nil
}

func (repo *schoolRepository) GetMemberByUser(ctx context.Context, kind school.MemberKind, userID string) (school.Member, error) {
	var row memberRow
	err := get(ctx, repo.db, &row, psql.Select(memberColumns...).From("member").
		Where(sq.Eq{"kind": string(kind), "user_id": userID}).Limit(1))
	if err != nil {
		return school.Member{}, notFound(err, school.MemberNotFound(kind))
	}
	return row.member(), nil
}

func (repo *schoolRepository) QueryMembers(ctx context.Context, kind school.MemberKind, schoolID string) ([]school.Member, error) {
	var rows []memberRow
	err := selectAll(ctx, repo.db, &rows, psql.Select(memberColumns...).From("member").
		Where(sq.Eq{"kind": string(kind), "school_id": schoolID}).OrderBy("name"))
	if err != nil {
		return nil, errors.Wrapf(err, "querying %ss", kind)
	}
	members := make([]school.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.member())
	}
	return members, nil
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	s.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("student").Columns(studentColumns...).Values(
		s.ID, s.SchoolID, s.ClassID, nullString(s.ParentID), nullString(s.UserID),
		s.FirstName, s.LastName, s.IsActive, s.CreatedAt, s.UpdatedAt,
	))
	return s, errors.Wrap(duplicate(err, "user_id"), "inserting student")
}

func (repo *schoolRepository) getStudent(ctx context.Context, where sq.Eq) (school.Student, error) {
	var row studentRow
	if err := get(ctx, repo.db, &row, psql.Select(studentColumns...).From("student").Where(where).Limit(1)); err != nil {
		return school.Student{}, notFound(err, school.ErrStudentNotFound)
	}
	return row.student(), nil
}

func (repo *schoolRepository) GetStudent(ctx context.Context, schoolID, id string) (school.Student, error) {
	return repo.getStudent(ctx, sq.Eq{"school_id": schoolID, "id": id})
}

func (repo *schoolRepository) GetStudentByUser(ctx context.Context, userID string) (school.Student, error) {
	return repo.getStudent(ctx, sq.Eq{"user_id": userID})
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, filter school.StudentFilter) ([]school.Student, error) {
	where := sq.Eq{"school_id": filter.SchoolID}
	if filter.ClassID != "" {
		where["class_id"] = filter.ClassID
	}
	if filter.ParentID != "" {
		where["parent_id"] = filter.ParentID
	}
	if filter.IsActive != nil {
		where["is_active"] = *filter.IsActive
	}

	var rows []studentRow
	err := selectAll(ctx, repo.db, &rows, psql.Select(studentColumns...).From("student").
		Where(where).OrderBy("last_name", "first_name"))
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	n, err := exec(ctx, repo.db, psql.Update("student").SetMap(map[string]interface{}{
		"class_id":   s.ClassID,
		"parent_id":  nullString(s.ParentID),
		"is_active":  s.IsActive,
		"updated_at": s.UpdatedAt,
	}).Where(sq.Eq{"school_id": s.SchoolID, "id": s.ID}))
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return s, nil
}
