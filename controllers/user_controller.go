package controllers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
)

const usersPath = "/users"

// ResetPasswordRequest represents the reset-password form
type ResetPasswordRequest struct {
	NewPassword     string `form:"new_password"`
	ConfirmPassword string `form:"confirm_password"`
}

func userService() *services.UserService {
	return services.NewUserService(config.GetDB())
}

// UsersPage handles GET /users - the accounts the caller administers
func UsersPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	filter := parseFilter(c)
	users, err := userService().List(id, filter)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	agencies, err := agencyService().List(id, services.ListFilter{Status: "active"})
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{
		"users":    users,
		"agencies": agencies,
		"roles":    assignableRoles(id),
		"filters":  filter,
	})
}

// assignableRoles lists the roles the caller may hand out
func assignableRoles(id services.Identity) []models.Role {
	if id.IsSuperAdmin() {
		return models.AllRoles()
	}
	return []models.Role{models.RoleStaff, models.RoleSalesperson}
}

// UserPage handles GET /users/:id
func UserPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	userID, ok := webPathID(c, usersPath)
	if !ok {
		return
	}

	user, err := userService().Get(id, userID)
	if err != nil {
		failForm(c, usersPath, err)
		return
	}
	renderPage(c, gin.H{"user": user, "roles": assignableRoles(id)})
}

// CreateUser handles POST /users
func CreateUser(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	var in services.CreateUserInput
	if !bindForm(c, &in, usersPath) {
		return
	}
	user, err := userService().Create(id, in)
	if err != nil {
		failForm(c, usersPath, err)
		return
	}
	succeedForm(c, usersPath, "create_user", "Created user: "+user.Username, "User created successfully.")
}

// EditUser handles POST /users/:id/edit
func EditUser(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	userID, ok := webPathID(c, usersPath)
	if !ok {
		return
	}

	var in services.UpdateUserInput
	if !bindForm(c, &in, usersPath) {
		return
	}
	user, err := userService().Update(id, userID, in)
	if err != nil {
		failForm(c, usersPath, err)
		return
	}
	succeedForm(c, usersPath, "edit_user", "Updated user: "+user.Username, "User updated successfully.")
}

// ToggleUserStatus handles POST /users/:id/toggle-status
func ToggleUserStatus(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	userID, ok := webPathID(c, usersPath)
	if !ok {
		return
	}

	user, err := userService().ToggleStatus(id, userID)
	if err != nil {
		failForm(c, usersPath, err)
		return
	}
	word := statusWord(user.IsActive)
	succeedForm(c, usersPath, "toggle_user_status",
		fmt.Sprintf("User %s %s", user.Username, word),
		fmt.Sprintf("User %s has been %s.", user.Username, word))
}

// ResetUserPassword handles POST /users/:id/reset-password
func ResetUserPassword(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	userID, ok := webPathID(c, usersPath)
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if !bindForm(c, &req, usersPath) {
		return
	}
	user, err := userService().ResetPassword(id, userID, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		failForm(c, usersPath, err)
		return
	}
	succeedForm(c, usersPath, "reset_password", "Reset password for user: "+user.Username,
		fmt.Sprintf("Password for %s has been reset.", user.Username))
}

// DeleteUser handles POST /users/:id/delete
func DeleteUser(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	userID, ok := webPathID(c, usersPath)
	if !ok {
		return
	}

	user, err := userService().Delete(id, userID)
	if err != nil {
		failForm(c, usersPath, err)
		return
	}
	succeedForm(c, usersPath, "delete_user", "Deleted user: "+user.Username, "User deleted successfully.")
}
