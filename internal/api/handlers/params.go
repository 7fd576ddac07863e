package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// nonNegativeParam reads name from the query string, then the form body.
func nonNegativeParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		raw = c.PostForm(name)
	}
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func batchIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid batch_id format")
	}
	return id, nil
}
