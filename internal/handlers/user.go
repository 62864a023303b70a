package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
	"telecomstore/internal/services"
)

const kycFolder = "kyc"

type ProfileAPI interface {
	Addresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error)
	AddAddress(ctx context.Context, userID primitive.ObjectID, in services.AddressInput) (*models.Address, error)
	UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, in services.AddressInput) (*models.Address, error)
	DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) error
	SubmitKYC(ctx context.Context, userID primitive.ObjectID, documentType, path string) (*models.KYC, string, error)
}

type addressRequest struct {
	Title     string `json:"title"`
	Line1     string `json:"line1" binding:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	Pincode   string `json:"pincode" binding:"required"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) input() services.AddressInput {
	return services.AddressInput{
		Title:     r.Title,
		Line1:     r.Line1,
		Line2:     r.Line2,
		City:      r.City,
		State:     r.State,
		Pincode:   r.Pincode,
		IsDefault: r.IsDefault,
	}
}

func GetAddresses(svc ProfileAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/addresses"
		defer handlePanic(c, route)

		addresses, err := svc.Addresses(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, addresses)
	}
}

func CreateAddress(svc ProfileAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/addresses"
		defer handlePanic(c, route)

		var req addressRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		address, err := svc.AddAddress(c.Request.Context(), currentUserID(c), req.input())
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusCreated, address)
	}
}

func UpdateAddress(svc ProfileAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/addresses/:id"
		defer handlePanic(c, route)

		var req addressRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		address, err := svc.UpdateAddress(c.Request.Context(), currentUserID(c), strings.TrimSpace(c.Param("id")), req.input())
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, address)
	}
}

func DeleteAddress(svc ProfileAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/addresses/:id"
		defer handlePanic(c, route)

		if err := svc.DeleteAddress(c.Request.Context(), currentUserID(c), strings.TrimSpace(c.Param("id"))); err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"deleted": true})
	}
}

// SubmitKYC stores the uploaded document and replaces any earlier one.
func SubmitKYC(svc ProfileAPI, uploads Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/kyc"
		defer handlePanic(c, route)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize+1<<20)

		documentType := strings.TrimSpace(c.PostForm("documentType"))
		if documentType == "" {
			respondError(c, route, apperr.Validation("documentType is required"))
			return
		}
		file, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				respondError(c, route, apperr.Validation("file is required"))
			} else {
				respondError(c, route, apperr.Validation("invalid multipart body"))
			}
			return
		}

		stored, err := uploads.saveDocument(file, kycFolder)
		if err != nil {
			respondError(c, route, err)
			return
		}

		userID := currentUserID(c)
		kyc, previous, err := svc.SubmitKYC(c.Request.Context(), userID, documentType, stored)
		if err != nil {
			if delErr := uploads.safeDelete(stored, kycFolder); delErr != nil {
				log.Warn().Err(delErr).Str("route", route).Str("path", stored).Msg("failed to remove rejected upload")
			}
			respondError(c, route, err)
			return
		}
		if previous != "" {
			if err := uploads.safeDelete(previous, kycFolder); err != nil {
				log.Warn().Err(err).Str("route", route).Str("user_id", userID.Hex()).Msg("failed to remove previous kyc document")
			}
		}
		respondOK(c, http.StatusCreated, kyc)
	}
}
