package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academia API!", rec.Body.String())
}

func Test_courseApi_query(t *testing.T) {
	db.Reset()

	path := func(search, instructor, ordering string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if instructor != "" {
			v.Add("instructor", instructor)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/api/courses?" + v.Encode()
	}

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)

	algebra := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	biology := testutil.CreateCourse(t, courseRepo, other, "Biology")
	calculus := testutil.CreateCourse(t, courseRepo, prof, "Calculus")

	runHTTPTests(t, []httpTest{
		{name: "anonymous", path: "/api/courses", wantData: marchallList(t, algebra, biology, calculus)},
		{name: "authenticated", path: "/api/courses", token: getToken(t, student), wantData: marchallList(t, algebra, biology, calculus)},
		{
			name: "invalid token", path: "/api/courses", token: "lol",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "search (unknown)", path: path("lol", "", ""), wantData: marchallList(t)},
		{name: "search=CALC", path: path("CALC", "", ""), wantData: marchallList(t, calculus)},
		{name: "search in description", path: path("biology desc", "", ""), wantData: marchallList(t, biology)},
		{name: "instructor", path: path("", prof.ID, ""), wantData: marchallList(t, algebra, calculus)},
		{name: "ordering=-title", path: path("", "", "-title"), wantData: marchallList(t, calculus, biology, algebra)},
		{name: "ordering (unknown field)", path: path("", "", "lol"), wantData: marchallList(t, algebra, biology, calculus)},
	})
}

func Test_courseApi_create(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	valid := marchallObj(t, course.NewCourse{Title: "  Algebra ", Description: "Linear algebra"})

	runHTTPTests(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/courses", body: valid,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "instructor required", method: http.MethodPost, path: "/api/courses", body: valid, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "title required", method: http.MethodPost, path: "/api/courses", body: []byte(`{"description": "lol"}`),
			token: getToken(t, prof), wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name: "blank title", method: http.MethodPost, path: "/api/courses", body: []byte(`{"title": "   "}`),
			token: getToken(t, prof), wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`),
		},
	})

	t.Run("create", func(t *testing.T) {
		rec := httpTest{method: http.MethodPost, path: "/api/courses", body: valid, token: getToken(t, prof)}.do()
		if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			return
		}
		var crs course.Course
		unmarshal(t, rec, &crs)
		assert.NotEmpty(t, crs.ID)
		assert.Equal(t, "Algebra", crs.Title)
		assert.Equal(t, "Linear algebra", crs.Description)
		assert.Equal(t, prof.ID, crs.InstructorID)

		stored, err := courseRepo.GetCourse(context.Background(), crs.ID)
		if assert.NoError(t, err) {
			assert.Equal(t, crs.Title, stored.Title)
		}
	})
}

func Test_courseApi_retrieve(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")

	runHTTPTests(t, []httpTest{
		{name: "anonymous", path: "/api/courses/" + crs.ID, wantData: marchallObj(t, crs)},
		{
			name: "not found", path: "/api/courses/lol",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	})
}

func Test_courseApi_update(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	path := "/api/courses/" + crs.ID

	patched := crs
	patched.Description = "Vectors & matrices"
	updated := patched
	updated.Title = "Linear Algebra"
	updated.Description = ""

	runHTTPTests(t, []httpTest{
		{
			name: "auth required", method: http.MethodPatch, path: path, body: []byte(`{"title": "lol"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "student", method: http.MethodPatch, path: path, body: []byte(`{"title": "lol"}`), token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "not the owner", method: http.MethodPatch, path: path, body: []byte(`{"title": "lol"}`), token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "not found", method: http.MethodPatch, path: "/api/courses/lol", body: []byte(`{"title": "lol"}`), token: getToken(t, prof),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "blank title", method: http.MethodPatch, path: path, body: []byte(`{"title": " "}`), token: getToken(t, prof),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field may not be blank"}`),
		},
		{
			name: "put requires title", method: http.MethodPut, path: path, body: []byte(`{"description": "lol"}`), token: getToken(t, prof),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name: "patch", method: http.MethodPatch, path: path, body: []byte(`{"description": "Vectors & matrices"}`), token: getToken(t, prof),
			wantData: marchallObj(t, patched),
		},
		{
			name: "put", method: http.MethodPut, path: path, body: []byte(`{"title": "Linear Algebra", "description": ""}`), token: getToken(t, prof),
			wantData: marchallObj(t, updated),
		},
	})

	stored, err := courseRepo.GetCourse(context.Background(), crs.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, updated, stored)
	}
}

func Test_courseApi_destroy(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	lsn := testutil.CreateLesson(t, courseRepo, crs, "Intro", 1)
	asg := testutil.CreateAssignment(t, cwRepo, crs, "Homework")
	testutil.CreateSubmission(t, cwRepo, asg, student, "42")
	testutil.Enroll(t, enrRepo, student, crs)
	path := "/api/courses/" + crs.ID

	runHTTPTests(t, []httpTest{
		{
			name: "not the owner", method: http.MethodDelete, path: path, token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "delete", method: http.MethodDelete, path: path, token: getToken(t, prof), wantCode: http.StatusNoContent},
		{
			name: "deleted", path: path,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "lessons deleted", path: "/api/lessons/" + lsn.ID,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "lesson not found"}),
		},
		{
			name: "assignments deleted", path: "/api/assignments/" + asg.ID,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
		},
		{name: "enrollments deleted", path: "/api/courses/enrolled", token: getToken(t, student), wantData: marchallList(t)},
		{name: "submissions deleted", path: "/api/submissions", token: getToken(t, student), wantData: marchallList(t)},
	})
}

func Test_courseApi_enroll(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	path := "/api/courses/" + crs.ID + "/enroll"

	runHTTPTests(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "instructor", method: http.MethodPost, path: path, token: getToken(t, prof),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Instructors cannot enroll."}),
		},
		{
			name: "course not found", method: http.MethodPost, path: "/api/courses/lol/enroll", token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	})

	var first echoapi.EnrollResponse
	t.Run("first enrollment", func(t *testing.T) {
		rec := httpTest{method: http.MethodPost, path: path, token: getToken(t, student)}.do()
		if assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			unmarshal(t, rec, &first)
			assert.Equal(t, "enrolled", first.Status)
			assert.Equal(t, student.ID, first.Enrollment.StudentID)
			assert.Equal(t, crs.ID, first.Enrollment.CourseID)
		}
	})

	t.Run("enrolling twice", func(t *testing.T) {
		rec := httpTest{method: http.MethodPost, path: path, token: getToken(t, student)}.do()
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, first)}, rec)
	})

	students, err := enrRepo.QueryStudents(context.Background(), crs.ID)
	if assert.NoError(t, err) {
		assert.Len(t, students, 1)
	}
}

func Test_courseApi_enroll_concurrently(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	token := getToken(t, student)

	const n = 10
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/enroll", token)
			app.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	var created, ok int
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusOK:
			ok++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, ok)

	students, err := enrRepo.QueryStudents(context.Background(), crs.ID)
	if assert.NoError(t, err) {
		assert.Len(t, students, 1)
	}
}

func Test_courseApi_enrolled(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	loner := testutil.CreateUser(t, usrRepo, "Loner", "loner", user.RoleStudent)

	algebra := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	biology := testutil.CreateCourse(t, courseRepo, other, "Biology")
	testutil.CreateCourse(t, courseRepo, other, "Chemistry")
	testutil.Enroll(t, enrRepo, student, algebra)
	testutil.Enroll(t, enrRepo, student, biology)

	runHTTPTests(t, []httpTest{
		{
			name: "auth required", path: "/api/courses/enrolled",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{name: "student", path: "/api/courses/enrolled", token: getToken(t, student), wantData: marchallList(t, algebra, biology)},
		{name: "student without enrollments", path: "/api/courses/enrolled", token: getToken(t, loner), wantData: marchallList(t)},
		{name: "instructor gets taught courses", path: "/api/courses/enrolled", token: getToken(t, prof), wantData: marchallList(t, algebra)},
	})
}

func Test_courseApi_students(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	testutil.CreateUser(t, usrRepo, "Loner", "loner", user.RoleStudent)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	testutil.Enroll(t, enrRepo, student, crs)
	path := "/api/courses/" + crs.ID + "/students"

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student", path: path, token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "not the owner", path: path, token: getToken(t, other), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "owner", path: path, token: getToken(t, prof), wantData: marchallList(t, student.Public())},
		{
			name: "not found", path: "/api/courses/lol/students", token: getToken(t, prof),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	})
}

func Test_lessonApi(t *testing.T) {
	db.Reset()

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Stud", "stud", user.RoleStudent)
	crs := testutil.CreateCourse(t, courseRepo, prof, "Algebra")
	otherCrs := testutil.CreateCourse(t, courseRepo, other, "Biology")
	second := testutil.CreateLesson(t, courseRepo, crs, "Matrices", 2)
	first := testutil.CreateLesson(t, courseRepo, crs, "Vectors", 1)
	cell := testutil.CreateLesson(t, courseRepo, otherCrs, "Cells", 1)

	renamed := second
	renamed.Title = "Matrices 101"

	runHTTPTests(t, []httpTest{
		{name: "query by course", path: "/api/lessons?course=" + crs.ID, wantData: marchallList(t, first, second)},
		{name: "query all", path: "/api/lessons", wantData: marchallList(t, first, cell, second)},
		{name: "retrieve", path: "/api/lessons/" + cell.ID, wantData: marchallObj(t, cell)},
		{
			name: "create: auth required", method: http.MethodPost, path: "/api/lessons",
			body:     marchallObj(t, course.NewLesson{CourseID: crs.ID, Title: "Determinants", Order: 3}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "create: student", method: http.MethodPost, path: "/api/lessons", token: getToken(t, student),
			body:     marchallObj(t, course.NewLesson{CourseID: crs.ID, Title: "Determinants", Order: 3}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "create: not the owner", method: http.MethodPost, path: "/api/lessons", token: getToken(t, other),
			body:     marchallObj(t, course.NewLesson{CourseID: crs.ID, Title: "Determinants", Order: 3}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "create: unknown course", method: http.MethodPost, path: "/api/lessons", token: getToken(t, prof),
			body:     marchallObj(t, course.NewLesson{CourseID: "lol", Title: "Determinants", Order: 3}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"course": "invalid course"}`),
		},
		{
			name: "create: negative order", method: http.MethodPost, path: "/api/lessons", token: getToken(t, prof),
			body:     marchallObj(t, course.NewLesson{CourseID: crs.ID, Title: "Determinants", Order: -1}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "update: not the owner", method: http.MethodPatch, path: "/api/lessons/" + second.ID, token: getToken(t, other),
			body: []byte(`{"title": "lol"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "update", method: http.MethodPatch, path: "/api/lessons/" + second.ID, token: getToken(t, prof),
			body: []byte(`{"title": "Matrices 101"}`), wantData: marchallObj(t, renamed),
		},
		{
			name: "delete: not the owner", method: http.MethodDelete, path: "/api/lessons/" + first.ID, token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "delete", method: http.MethodDelete, path: "/api/lessons/" + first.ID, token: getToken(t, prof), wantCode: http.StatusNoContent},
		{name: "deleted", path: "/api/lessons?course=" + crs.ID, wantData: marchallList(t, renamed)},
	})

	t.Run("create", func(t *testing.T) {
		rec := httpTest{
			method: http.MethodPost, path: "/api/lessons", token: getToken(t, prof),
			body: marchallObj(t, course.NewLesson{CourseID: crs.ID, Title: "Determinants", Content: "det(A)", Order: 3}),
		}.do()
		if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			return
		}
		var lsn course.Lesson
		unmarshal(t, rec, &lsn)
		assert.NotEmpty(t, lsn.ID)
		assert.Equal(t, crs.ID, lsn.CourseID)
		assert.Equal(t, "Determinants", lsn.Title)
		assert.Equal(t, "det(A)", lsn.Content)
		assert.Equal(t, 3, lsn.Order)
	})
}
