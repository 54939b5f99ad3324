package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/models"
	"github.com/joshua-takyi/gigboard/internal/services"
)

func SaveLocation(ls *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var in services.LocationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}

		loc, err := ls.SaveLocation(c.Request.Context(), userID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(loc, "Location saved successfully"))
	}
}

func ListLocations(ls *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		locs, err := ls.ListLocations(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(locs, ""))
	}
}

func DeleteLocation(ls *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		locID, ok := pathID(c, "location")
		if !ok {
			return
		}
		if err := ls.DeleteLocation(c.Request.Context(), locID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Location deleted successfully"))
	}
}
