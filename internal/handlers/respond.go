package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/fleetride/backoffice/internal/apperrors"
)

// respondError maps a domain error to its HTTP status and writes the
// user-visible message
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.MessageOf(err)})
}
