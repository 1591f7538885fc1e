package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	s.ID = newID()
	repo.db.schools[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.schools[id]; ok {
		return s, nil
	}
	return school.School{}, school.ErrSchoolNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	schools := make([]school.School, 0, len(repo.db.schools))
	for _, s := range repo.db.schools {
		schools = append(schools, s)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, c school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	c.ID = newID()
	repo.db.classes[c.ID] = c
	return c, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, schoolID, id string) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.classes[id]; ok && c.SchoolID == schoolID {
		return c, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryClasses(_ context.Context, schoolID string) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	classes := make([]school.Class, 0)
	for _, c := range repo.db.classes {
		if c.SchoolID == schoolID {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) CreateSubject(_ context.Context, s school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	s.ID = newID()
	repo.db.subjects[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) GetSubject(_ context.Context, schoolID, id string) (school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.subjects[id]; ok && s.SchoolID == schoolID {
		return s, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) QuerySubjects(_ context.Context, schoolID string) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	subjects := make([]school.Subject, 0)
	for _, s := range repo.db.subjects {
		if s.SchoolID == schoolID {
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *schoolRepository) CreateClassroom(_ context.Context, c school.Classroom) (school.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	c.ID = newID()
	repo.db.classrooms[c.ID] = c
	return c, nil
}

func (repo *schoolRepository) GetClassroom(_ context.Context, schoolID, id string) (school.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.classrooms[id]; ok && c.SchoolID == schoolID {
		return c, nil
	}
	return school.Classroom{}, school.ErrClassroomNotFound
}

func (repo *schoolRepository) QueryClassrooms(_ context.Context, schoolID string) ([]school.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	classrooms := make([]school.Classroom, 0)
	for _, c := range repo.db.classrooms {
		if c.SchoolID == schoolID {
			classrooms = append(classrooms, c)
		}
	}
	sort.Slice(classrooms, func(i, j int) bool { return classrooms[i].Name < classrooms[j].Name })
	return classrooms, nil
}

func (repo *schoolRepository) CreateMember(_ context.Context, m school.Member) (school.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	m.ID = newID()
	repo.db.members[m.ID] = m
	return m, nil
}

func (repo *schoolRepository) GetMember(_ context.Context, kind school.MemberKind, schoolID, id string) (school.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if m, ok := repo.db.members[id]; ok && m.Kind == kind && m.SchoolID == schoolID {
		return m, nil
	}
	return school.Member{}, school.MemberNotFound(kind)
}

func (repo *schoolRepository) GetMemberByUser(_ context.Context, kind school.MemberKind, userID string) (school.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, m := range repo.db.members {
		if m.Kind == kind && userID != "" && m.UserID == userID {
			return m, nil
		}
	}
	return school.Member{}, school.MemberNotFound(kind)
}

func (repo *schoolRepository) QueryMembers(_ context.Context, kind school.MemberKind, schoolID string) ([]school.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	members := make([]school.Member, 0)
	for _, m := range repo.db.members {
		if m.Kind == kind && m.SchoolID == schoolID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (repo *schoolRepository) CreateStudent(_ context.Context, s school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	s.ID = newID()
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, schoolID, id string) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.students[id]; ok && s.SchoolID == schoolID {
		return s, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) GetStudentByUser(_ context.Context, userID string) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.students {
		if userID != "" && s.UserID == userID {
			return s, nil
		}
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter school.StudentFilter) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	students := make([]school.Student, 0)
	for _, s := range repo.db.students {
		switch {
		case s.SchoolID != filter.SchoolID:
		case filter.ClassID != "" && s.ClassID != filter.ClassID:
		case filter.ParentID != "" && s.ParentID != filter.ParentID:
		case filter.IsActive != nil && s.IsActive != *filter.IsActive:
		default:
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, s school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.students[s.ID]
	if !ok || orig.SchoolID != s.SchoolID {
		return school.Student{}, school.ErrStudentNotFound
	}
	repo.db.students[s.ID] = s
	return s, nil
}
