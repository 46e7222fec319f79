package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/middleware"
	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves the caller or writes a 401 and reports false.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

// parseCourseID parses a positive numeric path or form value.
func parseCourseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "course_id must be a positive integer")
	}
	return id, nil
}
