package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/apperrors"
	"campushub/internal/auth"
	"campushub/internal/logger"
	"campushub/internal/middleware"
	"campushub/internal/models"
	"campushub/internal/store"
)

var (
	errCollegeRequired = apperrors.New(apperrors.KindValidation, "collegeId is required for uniadmin")
	errOwnAccount      = apperrors.New(apperrors.KindValidation, "cannot change your own account here")
)

type CreateAdminRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=superadmin uniadmin"`
	CollegeID string `json:"collegeId" binding:"omitempty,mongodb"`
}

// CreateAdmin provisions an admin account. A uniadmin belongs to exactly one college.
func CreateAdmin(sessions *auth.SessionManager, colleges store.CollegeStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAdminRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		var collegeID *primitive.ObjectID
		if req.CollegeID != "" {
			id, err := primitive.ObjectIDFromHex(req.CollegeID)
			if err != nil {
				respondError(c, log, errInvalidID)
				return
			}
			collegeID = &id
		}
		if req.Role == models.RoleUniAdmin && collegeID == nil {
			respondError(c, log, errCollegeRequired)
			return
		}

		if collegeID != nil {
			if _, err := colleges.FindByID(c.Request.Context(), *collegeID); err != nil {
				respondError(c, log, collegeError(err))
				return
			}
		}

		account, err := sessions.CreateAccount(c.Request.Context(), auth.NewAccount{
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			Role:      req.Role,
			CollegeID: collegeID,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}

		if collegeID != nil {
			if err := colleges.AdjustAdminCount(c.Request.Context(), *collegeID, 1); err != nil {
				log.Warn("admin count not adjusted", "college", collegeID.Hex(), "error", err)
			}
		}

		c.JSON(http.StatusCreated, account)
	}
}

// ListAdmins accepts ?role= and ?collegeId= filters.
func ListAdmins(accounts store.AccountStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.AccountFilter{Role: c.Query("role")}
		if v := c.Query("collegeId"); v != "" {
			id, err := primitive.ObjectIDFromHex(v)
			if err != nil {
				respondError(c, log, errInvalidID)
				return
			}
			filter.CollegeID = &id
		}

		admins, err := accounts.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, log, err)
			return
		}

		body, err := paginate(c, admins)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func TerminateAdmin(sessions *auth.SessionManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if isSelf(c, id) {
			respondError(c, log, errOwnAccount)
			return
		}

		account, err := sessions.Terminate(c.Request.Context(), id)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, account)
	}
}

func DeleteAdmin(accounts store.AccountStore, colleges store.CollegeStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if isSelf(c, id) {
			respondError(c, log, errOwnAccount)
			return
		}

		account, err := accounts.FindByID(c.Request.Context(), id)
		if err == nil {
			err = accounts.Delete(c.Request.Context(), id)
		}
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, log, apperrors.ErrAccountNotFound)
			return
		}
		if err != nil {
			respondError(c, log, err)
			return
		}

		if account.CollegeID != nil {
			if err := colleges.AdjustAdminCount(c.Request.Context(), *account.CollegeID, -1); err != nil {
				log.Warn("admin count not adjusted", "college", account.CollegeID.Hex(), "error", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "admin deleted"})
	}
}

func isSelf(c *gin.Context, id primitive.ObjectID) bool {
	account, ok := middleware.AccountFromContext(c)
	return ok && account.ID == id
}
