package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes payload with 200.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Created writes payload with 201, for resources minted by the request.
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}
