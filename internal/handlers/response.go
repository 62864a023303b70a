package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/middleware"
	"telecomstore/internal/models"
	"telecomstore/internal/services"
)

func init() {
	// Report binding failures under the JSON field name.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	}
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError writes the error envelope. Only apperr messages reach the client.
func respondError(c *gin.Context, route string, err error) {
	status := apperr.HTTPStatus(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("route", route).Int("status", status).Msg("request failed")
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": apperr.PublicMessage(err)})
}

// bindJSON decodes the body and converts binding failures into a validation error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindingError(err)
	}
	return nil
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request body")
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			details = append(details, fe.Field()+" is required")
		} else {
			details = append(details, fe.Field()+" is invalid")
		}
	}
	return apperr.Validation("%s", strings.Join(details, ", "))
}

func pathID(c *gin.Context, param string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(param)))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("%s is invalid", param)
	}
	return id, nil
}

// optionalID parses an id sent in a request body. Empty means absent.
func optionalID(field, raw string) (*primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Validation("%s is invalid", field)
	}
	return &id, nil
}

func currentUserID(c *gin.Context) primitive.ObjectID {
	id, _ := c.Get(middleware.UserIDKey)
	userID, _ := id.(primitive.ObjectID)
	return userID
}

func currentActor(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: currentUserID(c),
		Admin:  c.GetString(middleware.RoleKey) == models.RoleAdmin,
	}
}
