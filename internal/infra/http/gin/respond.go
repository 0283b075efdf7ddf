package ginserver

import (
	gin "github.com/gin-gonic/gin"
)

// Responses follow the service-wide convention: a success boolean plus
// either the payload fields or an error message.
func respondOK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}
