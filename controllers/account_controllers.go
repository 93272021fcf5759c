package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

// AccountController serves the settings page, account deletion and data export.
type AccountController struct {
	Accounts    *services.AccountService
	Preferences *services.PreferenceService
	Users       *services.UserService
	Activity    *services.ActivityLogger
}

func NewAccountController(accounts *services.AccountService, prefs *services.PreferenceService, users *services.UserService, activity *services.ActivityLogger) *AccountController {
	return &AccountController{Accounts: accounts, Preferences: prefs, Users: users, Activity: activity}
}

func (ac *AccountController) Settings(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middlewares.CurrentUserID(c)

	user, err := ac.Users.Get(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	prefs, err := ac.Preferences.Get(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondPage(c, "settings.html", "Settings", gin.H{
		"user":              user,
		"preferences":       prefs,
		"export_categories": services.ExportCategories,
	})
}

func (ac *AccountController) GetPreferences(c *gin.Context) {
	prefs, err := ac.Preferences.Get(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Preferences", prefs)
}

func (ac *AccountController) SavePreferences(c *gin.Context) {
	var req services.PreferencesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	userID := middlewares.CurrentUserID(c)
	prefs, err := ac.Preferences.Save(ctx, userID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	ac.Activity.Log(ctx, userID, services.ActivitySettingsUpdate, "Preferences saved", c.ClientIP())
	utils.RespondJSON(c, http.StatusOK, "Preferences saved", prefs)
}

// DeleteAccount runs the deletion cascade and ends the session.
func (ac *AccountController) DeleteAccount(c *gin.Context) {
	var req struct {
		Password     string `json:"password" form:"password" binding:"required"`
		Confirmation string `json:"confirmation" form:"confirmation" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := ac.Accounts.Delete(c.Request.Context(), middlewares.CurrentUserID(c), req.Password, req.Confirmation); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.BlacklistToken(c.GetString("token"))
	c.SetCookie(middlewares.TokenCookie, "", -1, "/", "", false, true)
	utils.RespondJSON(c, http.StatusOK, "Your account has been deleted", nil)
}

// Export streams the zip as an attachment and removes it afterwards.
// Categories come as repeated or comma separated "categories" values.
func (ac *AccountController) Export(c *gin.Context) {
	var categories []string
	raw := c.QueryArray("categories")
	if c.Request.Method == http.MethodPost {
		raw = append(raw, c.PostFormArray("categories")...)
	}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				categories = append(categories, part)
			}
		}
	}

	archive, err := ac.Accounts.Export(c.Request.Context(), middlewares.CurrentUserID(c), categories, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer archive.Cleanup()

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "application/zip")
	c.FileAttachment(archive.Path, archive.FileName)
}
