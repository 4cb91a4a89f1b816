package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listByFaculty() gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := h.repo.ListByFaculty(c.Request.Context(), c.Param("faculty"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, members)
	}
}

func (h *handlers) listCourses() gin.HandlerFunc {
	return func(c *gin.Context) {
		courses, err := h.repo.ListCourses(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, courses)
	}
}

func (h *handlers) averageGrade() gin.HandlerFunc {
	return func(c *gin.Context) {
		avg, err := h.repo.AverageGrade(c.Request.Context(), c.Param("faculty"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, avg)
	}
}

func (h *handlers) listStudents() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := h.repo.List(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func (h *handlers) getStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			h.fail(c, err)
			return
		}

		record, err := h.repo.GetByID(c.Request.Context(), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func (h *handlers) createStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields studentFields
		if err := bindRequest(c, &fields); err != nil {
			h.fail(c, err)
			return
		}
		input, err := fields.newStudent()
		if err != nil {
			h.fail(c, err)
			return
		}

		record, err := h.repo.Create(c.Request.Context(), input)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "student created",
			"id":      record.ID,
		})
	}
}

func (h *handlers) updateStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			h.fail(c, err)
			return
		}

		var fields studentFields
		if err := bindRequest(c, &fields); err != nil {
			h.fail(c, err)
			return
		}
		patch := fields.patch()
		if err := patch.Validate(); err != nil {
			h.fail(c, err)
			return
		}

		record, err := h.repo.Update(c.Request.Context(), id, patch)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "student updated",
			"student": record,
		})
	}
}

func (h *handlers) deleteStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			h.fail(c, err)
			return
		}

		record, err := h.repo.Delete(c.Request.Context(), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "student deleted",
			"id":      record.ID,
		})
	}
}
