package responses

import "github.com/gin-gonic/gin"

// APIError is the body of every failed request.
type APIError struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

// Success writes data as the response body unchanged.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Fail writes {"error": message}.
func Fail(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, APIError{Error: message})
}

// RunFail writes {"success": false, "error": message}, the shape the
// workspace expects from the run endpoint.
func RunFail(c *gin.Context, statusCode int, message string) {
	ok := false
	c.AbortWithStatusJSON(statusCode, APIError{Success: &ok, Error: message})
}
