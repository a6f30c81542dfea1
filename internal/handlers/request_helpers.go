// Package handlers holds the gin handlers of both tenants.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/apperrors"
	"campushub/internal/auth"
	"campushub/internal/logger"
)

var errInvalidID = apperrors.New(apperrors.KindValidation, "invalid id")

// respondError renders err as {"error": kind, "message": text}. Internal errors are logged, never shown.
func respondError(c *gin.Context, log logger.Logger, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{
		"error":   string(kind),
		"message": apperrors.Message(err),
	})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   string(apperrors.KindValidation),
			"message": "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   string(apperrors.KindValidation),
		"message": "invalid body",
	})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func paramID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, errInvalidID
	}
	return id, nil
}

func clientMeta(c *gin.Context) auth.Meta {
	return auth.Meta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
