package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

type UserController struct {
	Users         *services.UserService
	Activity      *services.ActivityLogger
	Notifications *services.NotificationService
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
}

func NewUserController(users *services.UserService, activity *services.ActivityLogger, notifications *services.NotificationService) *UserController {
	return &UserController{Users: users, Activity: activity, Notifications: notifications}
}

func (uc *UserController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Users.Register(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.WithField("user_id", user.ID).Infof("New user registered (role=%s)", user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
	})
}

// Login returns a JWT and also sets it as a cookie for page loads.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Users.Authenticate(c.Request.Context(), input.Email, input.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.TokenCookie, token, 0, "/", "", uc.SecureCookies, true)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

func (uc *UserController) Logout(c *gin.Context) {
	utils.BlacklistToken(c.GetString("token"))
	uc.Users.Logout(c.Request.Context(), middlewares.CurrentUserID(c), c.ClientIP())

	c.SetCookie(middlewares.TokenCookie, "", -1, "/", "", uc.SecureCookies, true)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// Profile renders the dashboard profile page.
func (uc *UserController) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middlewares.CurrentUserID(c)

	user, err := uc.Users.Get(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	activity, err := uc.Activity.Recent(ctx, userID, 10)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	unread, err := uc.Notifications.UnreadCount(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondPage(c, "profile.html", "Profile", gin.H{
		"user":         user,
		"activity":     activity,
		"unread_count": unread,
	})
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Users.UpdateProfile(c.Request.Context(), middlewares.CurrentUserID(c), req, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile updated", user)
}

func (uc *UserController) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=8"`
		ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	err := uc.Users.ChangePassword(c.Request.Context(), middlewares.CurrentUserID(c), req.CurrentPassword, req.NewPassword, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Password changed", nil)
}

func (uc *UserController) RequestVerification(c *gin.Context) {
	if err := uc.Users.RequestVerification(c.Request.Context(), middlewares.CurrentUserID(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Verification code sent", nil)
}

func (uc *UserController) ConfirmVerification(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := uc.Users.ConfirmVerification(c.Request.Context(), middlewares.CurrentUserID(c), req.Code, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Email verified", nil)
}
