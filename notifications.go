package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func listNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		unreadOnly := strings.EqualFold(strings.TrimSpace(c.Query("unread")), "true")

		notifications, err := app.store.ListNotifications(c.Request.Context(), user.ID, unreadOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	}
}

func markNotificationReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		// Scoped by user id: nobody marks someone else's inbox.
		err := app.store.MarkNotificationRead(c.Request.Context(), user.ID, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
