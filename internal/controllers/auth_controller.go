package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shelftrack/internal/config"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
)

type signupInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`

	// Joining an existing tenant
	CompanyID uint `json:"company_id"`

	// Admin bootstrap: create a new tenant alongside the account
	CompanyName  string `json:"company_name"`
	CompanyEmail string `json:"company_email"`

	// Rep profile fields
	Territory string `json:"territory"`
}

func validateAndNormalizeRole(role string) (string, error) {
	if role == "" {
		return "rep", nil
	}
	switch role {
	case "rep", "manager", "admin":
		return role, nil
	}
	return "", errors.New("role must be one of rep, manager, admin")
}

// SignupUser registers an account. Admins may bootstrap a new company in the
// same request; reps and managers join an existing one and reps get an
// Employee profile created alongside.
func SignupUser(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	role, err := validateAndNormalizeRole(input.Role)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not hash password"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not start transaction"})
		return
	}

	companyID := input.CompanyID
	if role == "admin" && companyID == 0 {
		if input.CompanyName == "" || input.CompanyEmail == "" {
			tx.Rollback()
			badRequest(c, "company_name and company_email are required when creating a new company")
			return
		}
		company := models.Company{Name: input.CompanyName, Email: input.CompanyEmail}
		if err := tx.Create(&company).Error; err != nil {
			tx.Rollback()
			if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"success": false, "error": "company email already in use"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not create company: " + err.Error()})
			return
		}
		companyID = company.ID
	} else {
		var count int64
		if err := tx.Model(&models.Company{}).Where("id = ?", companyID).Count(&count).Error; err != nil || count == 0 {
			tx.Rollback()
			badRequest(c, "a valid company_id is required")
			return
		}
	}

	user := models.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  string(hashed),
		Phone:     input.Phone,
		Role:      role,
		CompanyID: companyID,
	}
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not create user: " + err.Error()})
		return
	}

	if role == "rep" {
		employee := models.Employee{
			UserID:    user.ID,
			CompanyID: companyID,
			Phone:     input.Phone,
			Territory: input.Territory,
			Active:    true,
		}
		if err := tx.Create(&employee).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not create employee profile: " + err.Error()})
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "transaction commit failed: " + err.Error()})
		return
	}

	token, err := middleware.GenerateToken(user.ID, companyID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginUser verifies credentials and issues a JWT.
func LoginUser(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	var user models.User
	if err := config.DB.Preload("Employee").Where("email = ?", input.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}
