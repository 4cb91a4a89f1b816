package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-studentdb/jobs"
	"github.com/goliatone/go-studentdb/student"
)

type deleteRequest struct {
	StudentIDs []int64 `json:"student_ids"`
}

func (h *handlers) loadCSV() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loadRequest
		if err := bindRequest(c, &req); err != nil {
			h.fail(c, err)
			return
		}

		fn, err := jobs.Ingest(h.repo, h.dataDir, req.name())
		if err != nil {
			h.fail(c, err)
			return
		}
		h.schedule(c, "ingest "+req.name(), fn)
	}
}

func (h *handlers) deleteStudents() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			h.fail(c, student.Malformed(err))
			return
		}
		ids, err := decodeIDs(body)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.schedule(c, fmt.Sprintf("delete %d students", len(ids)), jobs.BulkDelete(h.repo, ids))
	}
}

func (h *handlers) jobStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, ok := h.runner.Status(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errNotFoundBody})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func (h *handlers) schedule(c *gin.Context, name string, fn jobs.Func) {
	id, err := h.runner.Submit(name, fn)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "job scheduled",
		"job_id":  id,
	})
}

// decodeIDs accepts a bare JSON array or an object with student_ids.
func decodeIDs(body []byte) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(body, &ids); err != nil {
		var req deleteRequest
		if objErr := json.Unmarshal(body, &req); objErr != nil {
			return nil, student.Malformed(errors.New("body must be a list of ids"))
		}
		ids = req.StudentIDs
	}
	if len(ids) == 0 {
		return nil, student.Malformed(errors.New("no ids given"))
	}
	for _, id := range ids {
		if id <= 0 {
			return nil, student.Malformed(fmt.Errorf("invalid id %d", id))
		}
	}
	return ids, nil
}
