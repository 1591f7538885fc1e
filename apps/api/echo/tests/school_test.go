package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/school"
)

func Test_schoolApi_structure(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, teacher := env.CreateTeacher(t, sch.ID, "teacher")
	_, parent := env.CreateParent(t, sch.ID, "parent")
	token := getToken(t, env, admin)

	runTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/classes", body: []byte(`{"name":"1A"}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admins only", method: http.MethodPost, path: "/v1/classes", token: getToken(t, env, teacher), body: []byte(`{"name":"1A"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "Bad academic year", method: http.MethodPost, path: "/v1/classes", token: token, body: []byte(`{"name":"1A","academic_year":"2025-2027"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "validation failed", Fields: map[string]string{"academic_year": "must be formatted as YYYY-YYYY over 2 consecutive years"}}),
		},
		{name: "Create class", method: http.MethodPost, path: "/v1/classes", token: token, body: []byte(`{"name":"1A","academic_year":"2025-2026"}`), wantCode: http.StatusCreated},
		{
			name: "Subject needs a coefficient", method: http.MethodPost, path: "/v1/subjects", token: token, body: []byte(`{"name":"Maths"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "validation failed", Fields: map[string]string{"coefficient": "this field is required"}}),
		},
		{name: "Create subject", method: http.MethodPost, path: "/v1/subjects", token: token, body: []byte(`{"name":"Maths","coefficient":4}`), wantCode: http.StatusCreated},
		{name: "Create classroom", method: http.MethodPost, path: "/v1/classrooms", token: token, body: []byte(`{"name":"Room 1","capacity":40}`), wantCode: http.StatusCreated},
		{name: "Parents cannot list classrooms", path: "/v1/classrooms", token: getToken(t, env, parent), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Create teacher", method: http.MethodPost, path: "/v1/teachers", token: token, body: []byte(`{"name":"Mr Smith","email":"smith@test.cd"}`), wantCode: http.StatusCreated},
		{name: "Teachers list teachers", path: "/v1/teachers", token: getToken(t, env, teacher), wantCode: http.StatusOK},
		{name: "Teachers cannot list parents", path: "/v1/parents", token: getToken(t, env, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})

	var classes []school.Class
	rec := do(app, httpTest{path: "/v1/classes", token: getToken(t, env, parent)})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &classes)
	require.Len(t, classes, 1)
	assert.Equal(t, "1A", classes[0].Name)
	assert.Equal(t, sch.ID, classes[0].SchoolID)

	var teachers []school.Member
	rec = do(app, httpTest{path: "/v1/teachers", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &teachers)
	assert.Len(t, teachers, 2)
}

func Test_schoolApi_students(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, teacher := env.CreateTeacher(t, sch.ID, "teacher")
	_, parent1 := env.CreateParent(t, sch.ID, "parent1")
	_, parent2 := env.CreateParent(t, sch.ID, "parent2")
	class := env.CreateClass(t, sch.ID, "1A")
	st2 := env.CreateStudent(t, sch.ID, class.ID, parent2.ParentID, "Bob")
	token := getToken(t, env, admin)

	rec := do(app, httpTest{
		method: http.MethodPost, path: "/v1/students", token: token,
		body: marchallObj(t, school.NewStudent{FirstName: " Ada ", LastName: "Lovelace", ClassID: class.ID, ParentID: parent1.ParentID}),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var st1 school.Student
	decode(t, rec, &st1)
	assert.True(t, st1.IsActive)
	assert.Equal(t, parent1.ParentID, st1.ParentID)

	student1 := env.StudentPrincipal(t, st1, "ada")
	notFound := marchallObj(t, echoapi.ErrorResponse{Message: "student not found"})
	runTests(t, app, []httpTest{
		{
			name: "Unknown class", method: http.MethodPost, path: "/v1/students", token: token,
			body:     marchallObj(t, school.NewStudent{FirstName: "Eve", LastName: "Test", ClassID: parent1.ParentID}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "class not found", Fields: map[string]string{"class_id": "class not found"}}),
		},
		{name: "Staff see all", path: "/v1/students", token: getToken(t, env, teacher), wantCode: http.StatusOK, wantData: marchallList(t, st1, st2)},
		{name: "Parents see their children", path: "/v1/students", token: getToken(t, env, parent1), wantCode: http.StatusOK, wantData: marchallList(t, st1)},
		{name: "Students see themselves", path: "/v1/students", token: getToken(t, env, student1), wantCode: http.StatusOK, wantData: marchallList(t, st1)},
		{name: "Parent reads own child", path: "/v1/students/" + st1.ID, token: getToken(t, env, parent1), wantCode: http.StatusOK, wantData: marchallObj(t, st1)},
		{name: "Parent reads another child", path: "/v1/students/" + st2.ID, token: getToken(t, env, parent1), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Deactivate", method: http.MethodPut, path: "/v1/students/" + st2.ID, token: token, body: []byte(`{"is_active":false}`), wantCode: http.StatusOK},
		{name: "Parents cannot update", method: http.MethodPut, path: "/v1/students/" + st1.ID, token: getToken(t, env, parent1), body: []byte(`{"is_active":false}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})

	active, err := env.Svcs.Schools.ActiveStudents(context.Background(), sch.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, st1.ID, active[0].ID)
}

func Test_recordsApi(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, teacher := env.CreateTeacher(t, sch.ID, "teacher")
	_, parent := env.CreateParent(t, sch.ID, "parent")
	class := env.CreateClass(t, sch.ID, "1A")
	subject := env.CreateSubject(t, sch.ID, "Maths", 4)
	own := env.CreateStudent(t, sch.ID, class.ID, parent.ParentID, "Ada")
	other := env.CreateStudent(t, sch.ID, class.ID, "", "Bob")

	adminToken := getToken(t, env, admin)
	teacherToken := getToken(t, env, teacher)
	parentToken := getToken(t, env, parent)

	absence := func(st school.Student, date string) []byte {
		return marchallObj(t, attendance.NewRecord{StudentID: st.ID, Date: date, Status: attendance.StatusAbsent})
	}
	runTests(t, app, []httpTest{
		{name: "Parents cannot record absences", method: http.MethodPost, path: "/v1/absences", token: parentToken, body: absence(own, "2025-10-01"), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "Bad date", method: http.MethodPost, path: "/v1/absences", token: teacherToken, body: absence(own, "2025-13-01"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "validation failed", Fields: map[string]string{"date": "must be a date formatted as YYYY-MM-DD"}}),
		},
		{name: "Record absence", method: http.MethodPost, path: "/v1/absences", token: teacherToken, body: absence(own, "2025-10-01"), wantCode: http.StatusCreated},
		{name: "Record other absence", method: http.MethodPost, path: "/v1/absences", token: adminToken, body: absence(other, "2025-10-01"), wantCode: http.StatusCreated},
		{
			name: "Grade out of range", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     []byte(`{"student_id":"` + own.ID + `","subject_id":"` + subject.ID + `","trimester":1,"academic_year":"2025-2026","controle_grade":21,"synthese_grade":10}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Zero is a grade", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     []byte(`{"student_id":"` + own.ID + `","subject_id":"` + subject.ID + `","trimester":1,"academic_year":"2025-2026","controle_grade":0,"synthese_grade":10}`),
			wantCode: http.StatusOK,
		},
		{
			name: "Teachers cannot record payments", method: http.MethodPost, path: "/v1/payments", token: teacherToken,
			body: marchallObj(t, payment.NewPayment{StudentID: own.ID, Amount: 100, PaidAt: "2025-10-01"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Record payment", method: http.MethodPost, path: "/v1/payments", token: adminToken, body: marchallObj(t, payment.NewPayment{StudentID: own.ID, Amount: 100, PaidAt: "2025-10-01"}), wantCode: http.StatusCreated},
		{name: "Teachers cannot read payments", path: "/v1/payments", token: teacherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Bad range date", path: "/v1/payments?from=lol", token: adminToken, wantCode: http.StatusBadRequest},
	})

	var records []attendance.Record
	rec := do(app, httpTest{path: "/v1/absences", token: parentToken})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &records)
	require.Len(t, records, 1)
	assert.Equal(t, own.ID, records[0].StudentID)

	rec = do(app, httpTest{path: "/v1/absences", token: teacherToken})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &records)
	assert.Len(t, records, 2)

	var payments []payment.Payment
	rec = do(app, httpTest{path: "/v1/payments?from=2025-10-01&to=2025-10-01", token: parentToken})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &payments)
	require.Len(t, payments, 1)
	assert.Equal(t, "cash", payments[0].Method)

	rec = do(app, httpTest{path: "/v1/payments?from=2025-10-02", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &payments)
	assert.Empty(t, payments)
}
