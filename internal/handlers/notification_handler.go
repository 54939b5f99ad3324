package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/models"
	"github.com/joshua-takyi/gigboard/internal/services"
)

func ListNotifications(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		page, err := ns.ListNotifications(
			c.Request.Context(),
			userID,
			queryBool(c, "isRead"),
			sortParams(c),
			pageParams(c, services.DefaultNotificationLimit),
		)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(page, ""))
	}
}

func UnreadCount(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		n, err := ns.UnreadCount(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"unreadCount": n}, ""))
	}
}

func MarkNotificationRead(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		noteID, ok := pathID(c, "notification")
		if !ok {
			return
		}
		note, err := ns.MarkAsRead(c.Request.Context(), noteID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(note, "Notification marked as read"))
	}
}

func MarkAllNotificationsRead(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		n, err := ns.MarkAllAsRead(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"modifiedCount": n}, "All notifications marked as read"))
	}
}

func DeleteNotification(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		noteID, ok := pathID(c, "notification")
		if !ok {
			return
		}
		if err := ns.DeleteNotification(c.Request.Context(), noteID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Notification deleted successfully"))
	}
}
