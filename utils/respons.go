package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Success: code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Success: false,
		Message: err.Error(),
		Data:    nil,
	})
}

// RespondPage renders an HTML template for browsers and the JSON envelope for
// everything else.
func RespondPage(c *gin.Context, template string, message string, data gin.H) {
	htmlData := gin.H{"title": message}
	for k, v := range data {
		htmlData[k] = v
	}
	c.Negotiate(200, gin.Negotiate{
		Offered:  []string{gin.MIMEJSON, gin.MIMEHTML},
		HTMLName: template,
		HTMLData: htmlData,
		JSONData: JSONResponse{Success: true, Message: message, Data: data},
	})
}
