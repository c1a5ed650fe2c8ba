package main

import (
	"net/http"
	"strings"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if err := validate.Struct(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}

		user, err := app.store.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			// Same answer for unknown user and bad password.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if err := utils.ComparePassword(user.PasswordHash, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.Name, string(user.Role), user.EntityAccess)
		if err != nil {
			config.LogError(app.logger, "auth.go", "loginHandler", "JwtGenerate", user.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if err := app.store.TouchUserLogin(c.Request.Context(), user.ID); err != nil {
			config.LogError(app.logger, "auth.go", "loginHandler", "TouchUserLogin", user.ID, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":            user.ID,
				"email":         user.Email,
				"name":          user.Name,
				"role":          user.Role,
				"entity_access": user.EntityAccess,
			},
		})
	}
}
