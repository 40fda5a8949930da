package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/apperrors"
)

// respondError maps a domain error onto its HTTP status and a uniform
// {"error": ...} body.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": name + " must be a number"})
		return 0, false
	}
	return uint(id), true
}

// accountID reads the authenticated account's id set by the auth middleware.
func accountID(c *gin.Context) uint {
	return c.GetUint("accountId")
}

// requireAccountType rejects requests from the wrong side of the app.
func requireAccountType(c *gin.Context, accountType string) bool {
	if c.GetString("accountType") != accountType {
		c.JSON(403, gin.H{"error": "This endpoint is for " + accountType + " accounts"})
		return false
	}
	return true
}
