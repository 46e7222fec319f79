package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resit-exam-api/internal/grading"
	"github.com/noah-isme/resit-exam-api/internal/models"
)

type pair [2]int64

// fakeStore is an in-memory stand-in for the relational store. The typed
// views below expose it through the repository method sets.
type fakeStore struct {
	users         map[int64]*models.User
	courses       map[int64]*models.Course
	enrollments   map[pair]bool
	grades        map[pair]*models.Grade
	exams         map[int64]*models.ResitExam
	registrations map[pair]time.Time
	notifications []models.Notification

	nextID int64
	writes int

	upsertErr error
	notifyErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[int64]*models.User{},
		courses:       map[int64]*models.Course{},
		enrollments:   map[pair]bool{},
		grades:        map[pair]*models.Grade{},
		exams:         map[int64]*models.ResitExam{},
		registrations: map[pair]time.Time{},
		nextID:        1000,
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addUser(id int64, email string, role models.UserRole) *models.User {
	u := &models.User{ID: id, Email: email, FullName: strings.Split(email, "@")[0], Role: role}
	s.users[id] = u
	return u
}

func (s *fakeStore) addCourse(id int64, code, name string, instructorID *int64) *models.Course {
	c := &models.Course{ID: id, Code: code, Name: name, InstructorID: instructorID}
	s.courses[id] = c
	return c
}

func (s *fakeStore) enroll(studentID, courseID int64) {
	s.enrollments[pair{studentID, courseID}] = true
}

func (s *fakeStore) setGrade(studentID, courseID int64, token string) {
	res, err := grading.Classify(token)
	if err != nil {
		panic(err)
	}
	s.grades[pair{studentID, courseID}] = &models.Grade{ID: s.id(), StudentID: studentID, CourseID: courseID, Score: res.Score, Letter: res.Letter}
}

func (s *fakeStore) addExam(courseID int64) *models.ResitExam {
	e := &models.ResitExam{ID: s.id(), CourseID: courseID}
	s.exams[courseID] = e
	return e
}

func (s *fakeStore) register(studentID, examID int64) {
	s.registrations[pair{studentID, examID}] = time.Now()
}

func (s *fakeStore) isRegistered(studentID, examID int64) bool {
	_, ok := s.registrations[pair{studentID, examID}]
	return ok
}

func (s *fakeStore) examByID(id int64) *models.ResitExam {
	for _, e := range s.exams {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *fakeStore) notificationsFor(userID int64) []models.Notification {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// rowCount sums every table, for before/after comparisons.
func (s *fakeStore) rowCount() int {
	return len(s.grades) + len(s.exams) + len(s.registrations) + len(s.notifications)
}

func int64Ptr(v int64) *int64 { return &v }

func uniqueViolation() error { return &pq.Error{Code: "23505"} }

type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := f.s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeCourses struct{ s *fakeStore }

func (f fakeCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := f.s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeCourses) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	for _, c := range f.s.courses {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeCourses) IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error) {
	return f.s.enrollments[pair{studentID, courseID}], nil
}

func (f fakeCourses) List(ctx context.Context) ([]models.Course, error) {
	return f.filter(func(*models.Course) bool { return true }), nil
}

func (f fakeCourses) ListByInstructor(ctx context.Context, instructorID int64) ([]models.Course, error) {
	return f.filter(func(c *models.Course) bool { return c.InstructorID != nil && *c.InstructorID == instructorID }), nil
}

func (f fakeCourses) ListByStudent(ctx context.Context, studentID int64) ([]models.Course, error) {
	return f.filter(func(c *models.Course) bool { return f.s.enrollments[pair{studentID, c.ID}] }), nil
}

func (f fakeCourses) CountByStudent(ctx context.Context, studentID int64) (int, error) {
	courses, _ := f.ListByStudent(ctx, studentID)
	return len(courses), nil
}

func (f fakeCourses) EnrollmentStatsByInstructor(ctx context.Context, instructorID int64) ([]models.CourseEnrollmentStat, error) {
	courses, _ := f.ListByInstructor(ctx, instructorID)
	stats := make([]models.CourseEnrollmentStat, 0, len(courses))
	for _, c := range courses {
		total := 0
		for key := range f.s.enrollments {
			if key[1] == c.ID {
				total++
			}
		}
		stats = append(stats, models.CourseEnrollmentStat{CourseID: c.ID, CourseCode: c.Code, CourseName: c.Name, TotalStudents: total})
	}
	return stats, nil
}

func (f fakeCourses) filter(keep func(*models.Course) bool) []models.Course {
	var out []models.Course
	for _, c := range f.s.courses {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

type fakeGrades struct{ s *fakeStore }

func (f fakeGrades) Upsert(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) (bool, error) {
	if f.s.upsertErr != nil {
		return false, f.s.upsertErr
	}
	f.s.writes++
	key := pair{grade.StudentID, grade.CourseID}
	if existing, ok := f.s.grades[key]; ok {
		existing.Score = grade.Score
		existing.Letter = grade.Letter
		grade.ID = existing.ID
		return false, nil
	}
	grade.ID = f.s.id()
	stored := *grade
	f.s.grades[key] = &stored
	return true, nil
}

func (f fakeGrades) FindByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*models.Grade, error) {
	if g, ok := f.s.grades[pair{studentID, courseID}]; ok {
		return g, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeGrades) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentGrade, error) {
	var out []models.StudentGrade
	for key, g := range f.s.grades {
		if key[0] != studentID {
			continue
		}
		c := f.s.courses[key[1]]
		out = append(out, models.StudentGrade{CourseID: c.ID, CourseCode: c.Code, CourseName: c.Name, Score: g.Score, Letter: g.Letter})
	}
	return out, nil
}

func (f fakeGrades) LettersByStudent(ctx context.Context, studentID int64) ([]grading.Letter, error) {
	var out []grading.Letter
	for key, g := range f.s.grades {
		if key[0] == studentID {
			out = append(out, g.Letter)
		}
	}
	return out, nil
}

type fakeExams struct{ s *fakeStore }

func (f fakeExams) FindByCourse(ctx context.Context, exec sqlx.ExtContext, courseID int64) (*models.ResitExam, error) {
	if e, ok := f.s.exams[courseID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeExams) Create(ctx context.Context, exam *models.ResitExam) error {
	if _, ok := f.s.exams[exam.CourseID]; ok {
		return uniqueViolation()
	}
	f.s.writes++
	exam.ID = f.s.id()
	stored := *exam
	f.s.exams[exam.CourseID] = &stored
	return nil
}

func (f fakeExams) UpdateDetails(ctx context.Context, exam *models.ResitExam) error {
	f.s.writes++
	stored := f.s.exams[exam.CourseID]
	stored.NoOfQuestions = exam.NoOfQuestions
	stored.AllowedTools = exam.AllowedTools
	stored.Notes = exam.Notes
	return nil
}

func (f fakeExams) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, examID int64, examDate time.Time, location string) error {
	e := f.s.examByID(examID)
	if e == nil {
		return sql.ErrNoRows
	}
	f.s.writes++
	e.ExamDate = &examDate
	e.Location = &location
	return nil
}

func (f fakeExams) PatchSchedule(ctx context.Context, courseID int64, examDate *time.Time, location *string) (*models.ResitExam, error) {
	e, ok := f.s.exams[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	f.s.writes++
	if examDate != nil {
		e.ExamDate = examDate
	}
	if location != nil {
		e.Location = location
	}
	copied := *e
	return &copied, nil
}

func (f fakeExams) ListSummaries(ctx context.Context) ([]models.ResitExamSummary, error) {
	var out []models.ResitExamSummary
	for courseID, e := range f.s.exams {
		c := f.s.courses[courseID]
		count := 0
		for key := range f.s.registrations {
			if key[1] == e.ID {
				count++
			}
		}
		out = append(out, models.ResitExamSummary{ResitExam: *e, CourseCode: c.Code, CourseName: c.Name, Registrations: count})
	}
	return out, nil
}

func (f fakeExams) Count(ctx context.Context) (int, error) {
	return len(f.s.exams), nil
}

type fakeRegistrations struct{ s *fakeStore }

func (f fakeRegistrations) Create(ctx context.Context, exec sqlx.ExtContext, reg *models.ResitRegistration) error {
	key := pair{reg.StudentID, reg.ExamID}
	if _, ok := f.s.registrations[key]; ok {
		return uniqueViolation()
	}
	f.s.writes++
	reg.CreatedAt = time.Now()
	f.s.registrations[key] = reg.CreatedAt
	return nil
}

func (f fakeRegistrations) Delete(ctx context.Context, exec sqlx.ExtContext, studentID, examID int64) (bool, error) {
	key := pair{studentID, examID}
	if _, ok := f.s.registrations[key]; !ok {
		return false, nil
	}
	f.s.writes++
	delete(f.s.registrations, key)
	return true, nil
}

func (f fakeRegistrations) ListStudentIDs(ctx context.Context, exec sqlx.ExtContext, examID int64) ([]int64, error) {
	var ids []int64
	for key := range f.s.registrations {
		if key[1] == examID {
			ids = append(ids, key[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f fakeRegistrations) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentResitExam, error) {
	var out []models.StudentResitExam
	for key := range f.s.registrations {
		if key[0] != studentID {
			continue
		}
		e := f.s.examByID(key[1])
		c := f.s.courses[e.CourseID]
		out = append(out, models.StudentResitExam{ExamID: e.ID, CourseID: c.ID, CourseCode: c.Code, CourseName: c.Name, ExamDate: e.ExamDate, Location: e.Location})
	}
	return out, nil
}

func (f fakeRegistrations) ListEligibleCourses(ctx context.Context, studentID int64, letters []grading.Letter) ([]models.EligibleResitCourse, error) {
	allowed := map[grading.Letter]bool{}
	for _, l := range letters {
		allowed[l] = true
	}
	var out []models.EligibleResitCourse
	for key, g := range f.s.grades {
		if key[0] != studentID || !allowed[g.Letter] {
			continue
		}
		e, ok := f.s.exams[key[1]]
		if !ok || f.s.isRegistered(studentID, e.ID) {
			continue
		}
		c := f.s.courses[key[1]]
		out = append(out, models.EligibleResitCourse{CourseID: c.ID, CourseCode: c.Code, CourseName: c.Name, Letter: g.Letter, ExamID: e.ID})
	}
	return out, nil
}

func (f fakeRegistrations) ListParticipants(ctx context.Context, courseID int64) ([]models.ResitParticipant, error) {
	e, ok := f.s.exams[courseID]
	if !ok {
		return nil, nil
	}
	c := f.s.courses[courseID]
	ids, _ := f.ListStudentIDs(ctx, nil, e.ID)
	out := make([]models.ResitParticipant, 0, len(ids))
	for _, id := range ids {
		u := f.s.users[id]
		p := models.ResitParticipant{StudentID: id, Email: u.Email, FullName: u.FullName, CourseCode: c.Code, CourseName: c.Name, ExamDate: e.ExamDate}
		if g, ok := f.s.grades[pair{id, courseID}]; ok {
			p.Score = g.Score
			p.Letter = g.Letter
		}
		out = append(out, p)
	}
	return out, nil
}

func (f fakeRegistrations) CountByStudent(ctx context.Context, studentID int64) (int, error) {
	n := 0
	for key := range f.s.registrations {
		if key[0] == studentID {
			n++
		}
	}
	return n, nil
}

func (f fakeRegistrations) Count(ctx context.Context) (int, error) {
	return len(f.s.registrations), nil
}

func (f fakeRegistrations) StatsByInstructor(ctx context.Context, instructorID int64) ([]models.CourseResitStat, error) {
	var out []models.CourseResitStat
	for courseID, e := range f.s.exams {
		c := f.s.courses[courseID]
		if c.InstructorID == nil || *c.InstructorID != instructorID {
			continue
		}
		ids, _ := f.ListStudentIDs(ctx, nil, e.ID)
		out = append(out, models.CourseResitStat{CourseID: c.ID, CourseCode: c.Code, ResitStudents: len(ids)})
	}
	return out, nil
}

type fakeNotifications struct{ s *fakeStore }

func (f fakeNotifications) Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error {
	if f.s.notifyErr != nil {
		return f.s.notifyErr
	}
	f.s.writes++
	n.ID = f.s.id()
	n.CreatedAt = time.Now()
	f.s.notifications = append(f.s.notifications, *n)
	return nil
}

func (f fakeNotifications) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	items := f.s.notificationsFor(userID)
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type metricsSpy struct {
	batches       map[string][2]int
	notifications map[string]int
}

func newMetricsSpy() *metricsSpy {
	return &metricsSpy{batches: map[string][2]int{}, notifications: map[string]int{}}
}

func (m *metricsSpy) ObserveBatch(kind string, processed, failed int) {
	m.batches[kind] = [2]int{processed, failed}
}

func (m *metricsSpy) RecordNotifications(source string, n int) {
	m.notifications[source] += n
}

var (
	studentActor    = models.Actor{UserID: 1, Role: models.RoleStudent}
	instructorActor = models.Actor{UserID: 10, Role: models.RoleInstructor}
	secretaryActor  = models.Actor{UserID: 20, Role: models.RoleFacultySecretary}
)

// seedCampus registers the default actors and course CS101 taught by the instructor.
func seedCampus(s *fakeStore) *models.Course {
	s.addUser(studentActor.UserID, "ayse@uni.test", models.RoleStudent)
	s.addUser(instructorActor.UserID, "prof@uni.test", models.RoleInstructor)
	s.addUser(secretaryActor.UserID, "office@uni.test", models.RoleFacultySecretary)
	course := s.addCourse(100, "CS101", "Intro to Programming", int64Ptr(instructorActor.UserID))
	s.enroll(studentActor.UserID, course.ID)
	return course
}
