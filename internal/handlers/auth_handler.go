package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/models"
	"github.com/joshua-takyi/gigboard/internal/services"
)

type phoneRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type credentialsRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Pin         string `json:"pin" binding:"required"`
}

// SendVerification also serves resend; every call issues a fresh code.
func SendVerification(v *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req phoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone number is required", err.Error())
			return
		}

		res, err := v.SendCode(c.Request.Context(), req.PhoneNumber)
		if err != nil {
			respondError(c, err)
			return
		}

		message := "Verification code sent successfully"
		if res.VerificationCode != "" {
			message = "Verification code generated (test mode)"
		}
		c.JSON(http.StatusOK, models.SuccessResponse(res, message))
	}
}

func VerifyPhone(v *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PhoneNumber      string `json:"phoneNumber" binding:"required"`
			VerificationCode string `json:"verificationCode" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone number and verification code are required", err.Error())
			return
		}

		if err := v.VerifyCode(c.Request.Context(), req.PhoneNumber, req.VerificationCode); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"phoneNumber": req.PhoneNumber, "isVerified": true}, "Phone number verified successfully"))
	}
}

func Register(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone number and PIN are required", err.Error())
			return
		}

		res, err := a.Register(c.Request.Context(), req.PhoneNumber, req.Pin)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(res, "User registered successfully"))
	}
}

func Login(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone number and PIN are required", err.Error())
			return
		}

		res, err := a.Login(c.Request.Context(), req.PhoneNumber, req.Pin)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(res, "Login successful"))
	}
}

func CheckPhone(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req phoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone number is required", err.Error())
			return
		}

		exists, err := a.CheckPhone(c.Request.Context(), req.PhoneNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"phoneNumber": req.PhoneNumber, "isRegistered": exists}, ""))
	}
}

func Me(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		user, err := a.Me(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, ""))
	}
}

func CompleteProfile(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req services.ProfileInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err.Error())
			return
		}

		user, err := a.CompleteProfile(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, "Profile completed successfully"))
	}
}

func ChangePin(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req struct {
			CurrentPin string `json:"currentPin" binding:"required"`
			NewPin     string `json:"newPin" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Current PIN and new PIN are required", err.Error())
			return
		}

		if err := a.ChangePin(c.Request.Context(), userID, req.CurrentPin, req.NewPin); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "PIN changed successfully"))
	}
}
