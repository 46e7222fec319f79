package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
)

func TestListCoursesByRole(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedCampus(store)
	store.addCourse(200, "MA201", "Linear Algebra", nil)
	svc := NewCourseService(fakeCourses{store}, nil)

	cases := []struct {
		actor models.Actor
		codes []string
	}{
		{studentActor, []string{"CS101"}},
		{instructorActor, []string{"CS101"}},
		{secretaryActor, []string{"CS101", "MA201"}},
		{models.Actor{UserID: 55, Role: models.RoleInstructor}, []string{}},
	}
	for _, tc := range cases {
		courses, err := svc.ListCourses(ctx, tc.actor)
		require.NoError(t, err)
		codes := make([]string, 0, len(courses))
		for _, c := range courses {
			codes = append(codes, c.Code)
		}
		assert.Equal(t, tc.codes, codes, string(tc.actor.Role))
	}

	_, err := svc.ListCourses(ctx, models.Actor{UserID: 1})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
