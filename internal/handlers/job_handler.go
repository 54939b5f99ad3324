package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/models"
	"github.com/joshua-takyi/gigboard/internal/services"
)

func CreateJob(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var in models.JobInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "Invalid job payload", err.Error())
			return
		}

		job, err := js.CreateJob(c.Request.Context(), userID, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(job, "Job created successfully"))
	}
}

// ListJobs is the public feed: ?urgency, jobType, location, search, page,
// limit, sortBy, sortOrder.
func ListJobs(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.JobFilter{
			Urgency:  models.Urgency(c.Query("urgency")),
			JobType:  models.JobType(c.Query("jobType")),
			Location: c.Query("location"),
			Search:   c.Query("search"),
		}

		page, err := js.ListJobs(c.Request.Context(), filter, sortParams(c), pageParams(c, models.DefaultPageLimit))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(page, ""))
	}
}

func ListMyJobs(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		status := models.JobStatus(c.Query("status"))
		page, err := js.ListMyJobs(c.Request.Context(), userID, status, sortParams(c), pageParams(c, models.DefaultPageLimit))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(page, ""))
	}
}

// ListJobsByUrgency serves /jobs/hot and /jobs/normal. Signed-in callers do
// not see their own postings.
func ListJobsByUrgency(js *services.JobService, urgency models.Urgency) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := js.ListByUrgencyNearLocation(
			c.Request.Context(),
			urgency,
			c.Query("location"),
			optionalUserID(c),
			sortParams(c),
			pageParams(c, models.DefaultPageLimit),
		)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(page, ""))
	}
}

func GetJob(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := pathID(c, "job")
		if !ok {
			return
		}
		job, err := js.GetJob(c.Request.Context(), jobID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(job, ""))
	}
}

func UpdateJob(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		jobID, ok := pathID(c, "job")
		if !ok {
			return
		}
		var patch models.JobPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "Invalid job payload", err.Error())
			return
		}

		job, err := js.UpdateJob(c.Request.Context(), jobID, userID, &patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(job, "Job updated successfully"))
	}
}

func DeleteJob(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		jobID, ok := pathID(c, "job")
		if !ok {
			return
		}
		if err := js.DeleteJob(c.Request.Context(), jobID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Job deleted successfully"))
	}
}

func UpdateJobStatus(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		jobID, ok := pathID(c, "job")
		if !ok {
			return
		}
		var req struct {
			Status models.JobStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Status is required", err.Error())
			return
		}

		job, err := js.UpdateStatus(c.Request.Context(), jobID, userID, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(job, "Job status updated successfully"))
	}
}

func ExpressInterest(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		jobID, ok := pathID(c, "job")
		if !ok {
			return
		}

		already, err := js.RecordInterest(c.Request.Context(), jobID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		message := "Interest recorded successfully"
		if already {
			message = "Interest already recorded"
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"jobId": jobID.Hex(), "alreadyRecorded": already}, message))
	}
}

// ExpireOldJobs is the admin trigger for the expiry sweep.
func ExpireOldJobs(js *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := js.ExpireOldJobs(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(res, "Expired jobs swept"))
	}
}
