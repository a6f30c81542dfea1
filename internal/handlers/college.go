package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campushub/internal/apperrors"
	"campushub/internal/logger"
	"campushub/internal/middleware"
	"campushub/internal/models"
	"campushub/internal/store"
)

type CollegeCreateRequest struct {
	Name    string   `json:"name" binding:"required"`
	Domains []string `json:"domains" binding:"dive,fqdn"`
}

/*
GET /admin/api/colleges
- superadmin sees every college
- uniadmin sees only its own
*/
func ListColleges(colleges store.CollegeStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := middleware.AccountFromContext(c)
		if !ok {
			respondError(c, log, apperrors.ErrUnauthenticated)
			return
		}

		var list []models.College
		var err error
		if account.Role == models.RoleSuperAdmin {
			list, err = colleges.List(c.Request.Context())
		} else if account.CollegeID != nil {
			list, err = colleges.List(c.Request.Context(), *account.CollegeID)
		} else {
			list = []models.College{}
		}
		if err != nil {
			respondError(c, log, err)
			return
		}

		body, err := paginate(c, list)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func GetCollege(colleges store.CollegeStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := middleware.AccountFromContext(c)
		if !ok {
			respondError(c, log, apperrors.ErrUnauthenticated)
			return
		}

		id, err := paramID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		if account.Role != models.RoleSuperAdmin && (account.CollegeID == nil || *account.CollegeID != id) {
			respondError(c, log, apperrors.ErrForbidden)
			return
		}

		college, err := colleges.FindByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, log, collegeError(err))
			return
		}
		c.JSON(http.StatusOK, college)
	}
}

/*
POST /admin/api/colleges
- names are unique, case-insensitively
*/
func CreateCollege(colleges store.CollegeStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CollegeCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondError(c, log, apperrors.New(apperrors.KindValidation, "name required"))
			return
		}

		college := models.College{
			Name:    name,
			Domains: models.Normalize(req.Domains),
		}
		if err := colleges.Create(c.Request.Context(), &college); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondError(c, log, apperrors.ErrCollegeExists)
				return
			}
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusCreated, college)
	}
}

/*
DELETE /admin/api/colleges/:id
- also deletes the college's admins
- a failed cascade is logged, not rolled back
*/
func DeleteCollege(colleges store.CollegeStore, admins store.AccountStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		if err := colleges.Delete(c.Request.Context(), id); err != nil {
			respondError(c, log, collegeError(err))
			return
		}

		deleted, err := admins.DeleteByCollege(c.Request.Context(), id)
		if err != nil {
			log.Error("college admins not deleted", "college", id.Hex(), "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "college deleted", "deletedAdmins": deleted})
	}
}

// PublicColleges lists colleges for the signup form of the public site.
func PublicColleges(colleges store.CollegeStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := colleges.List(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}

		out := make([]gin.H, 0, len(list))
		for _, college := range list {
			out = append(out, gin.H{"id": college.ID.Hex(), "name": college.Name, "domains": college.Domains})
		}
		c.JSON(http.StatusOK, gin.H{"data": out})
	}
}

func collegeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.ErrCollegeNotFound
	}
	return err
}
