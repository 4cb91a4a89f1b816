package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-studentdb/auth"
)

// UserIDHeader carries the caller id when it is not in the query string.
const UserIDHeader = "X-User-ID"

const userKey = "user"

func (h *handlers) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("user_id")
		if id == "" {
			id = c.GetHeader(UserIDHeader)
		}

		user, err := h.gate.Authorize(c.Request.Context(), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func (h *handlers) register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req userRequest
		if err := bindRequest(c, &req); err != nil {
			h.fail(c, err)
			return
		}

		user, err := h.gate.Register(c.Request.Context(),
			firstNonEmpty(req.FirstName, req.FirstNameCamel),
			firstNonEmpty(req.LastName, req.LastNameCamel),
		)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "user registered",
			"user_id": user.ID,
		})
	}
}

func (h *handlers) login() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.callerID(c)
		if !ok {
			return
		}
		user, err := h.gate.Login(c.Request.Context(), id)
		if err != nil {
			h.failSession(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "logged in",
			"user":    user,
		})
	}
}

func (h *handlers) logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.callerID(c)
		if !ok {
			return
		}
		if err := h.gate.Logout(c.Request.Context(), id); err != nil {
			h.failSession(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "logged out",
			"user_id": id,
		})
	}
}

func (h *handlers) callerID(c *gin.Context) (string, bool) {
	var req userRequest
	if err := bindRequest(c, &req); err != nil {
		h.fail(c, err)
		return "", false
	}
	if id := req.id(); id != "" {
		return id, true
	}
	return c.GetHeader(UserIDHeader), true
}

// failSession answers 401 instead of 403 for unknown ids.
func (h *handlers) failSession(c *gin.Context, err error) {
	if errors.Is(err, auth.ErrAccessDenied) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	h.fail(c, err)
}
