package controllers

import (
	"net/http"

	"greenreport-be/apperror"
	"greenreport-be/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	accounts *services.AccountService
	log      logrus.FieldLogger
}

func NewAuthController(accounts *services.AccountService, log logrus.FieldLogger) *AuthController {
	return &AuthController{accounts: accounts, log: log}
}

// Login handles admin and worker login
func (h *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, h.log, apperror.InvalidArgument("Email and password are required"))
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

// GetMe retrieves the authenticated user's information
func (h *AuthController) GetMe(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
