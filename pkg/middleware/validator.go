package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ValidatorKey is the context key holding the request validator
const ValidatorKey = "validator"

var defaultValidate = validator.New(validator.WithRequiredStructEnabled())

// Validator attaches a struct validator to every request
func Validator() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ValidatorKey, defaultValidate)
		c.Next()
	}
}

// BindAndValidate binds the request body (JSON or form) into obj and checks
// its `validate` tags. On failure it answers 400 and returns false.
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}

	v := defaultValidate
	if got, ok := c.Get(ValidatorKey); ok {
		if vv, ok := got.(*validator.Validate); ok {
			v = vv
		}
	}

	if err := v.Struct(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": validationFields(err),
		})
		return false
	}
	return true
}

func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+":"+fe.Tag())
	}
	return fields
}
