package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/models"
	"telecomstore/internal/services"
)

type AuthAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestLoginOTP(ctx context.Context, mobile string) (*services.OTPDispatch, error)
	VerifyLoginOTP(ctx context.Context, mobile, code string) (*services.Session, error)
	Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Mobile   string `json:"mobile" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type otpRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

type otpVerifyRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

func Register(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		session, err := svc.Register(c.Request.Context(), services.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Mobile:   req.Mobile,
		})
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusCreated, session)
	}
}

func Login(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		session, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, session)
	}
}

func Refresh(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/refresh"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		session, err := svc.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, session)
	}
}

func Logout(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/logout"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		if err := svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"loggedOut": true})
	}
}

func RequestLoginOTP(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/otp/request"
		defer handlePanic(c, route)

		var req otpRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		dispatch, err := svc.RequestLoginOTP(c.Request.Context(), req.Mobile)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, dispatch)
	}
}

func VerifyLoginOTP(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/otp/verify"
		defer handlePanic(c, route)

		var req otpVerifyRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		session, err := svc.VerifyLoginOTP(c.Request.Context(), req.Mobile, req.OTP)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, session)
	}
}

func GetMe(svc AuthAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		user, err := svc.Me(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, user)
	}
}
