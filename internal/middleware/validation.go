package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/temcen/cinerank/internal/validation"
)

// maxBodyBytes bounds request bodies read for validation.
const maxBodyBytes = 1 << 20

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

// ValidateBody rejects requests whose JSON body does not match the named
// schema. An empty body is accepted when allowEmpty is set.
func (vm *ValidationMiddleware) ValidateBody(schemaName string, allowEmpty bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil {
			sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body", nil)
			return
		}
		if len(bodyBytes) > maxBodyBytes {
			sendValidationError(c, "BODY_TOO_LARGE", "Request body is too large", nil)
			return
		}

		// Restore request body for downstream handlers
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			if allowEmpty {
				c.Next()
				return
			}
			sendValidationError(c, "EMPTY_BODY", "Request body is required", nil)
			return
		}

		result := vm.validator.Validate(schemaName, bodyBytes)
		if !result.Valid {
			sendValidationError(c, "VALIDATION_ERROR", "Request validation failed", gin.H{
				"validation_errors": result.Errors,
				"field_errors":      result.FieldErrors(),
			})
			return
		}

		c.Next()
	}
}

func sendValidationError(c *gin.Context, code, message string, details gin.H) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	if id := c.GetString(RequestIDKey); id != "" {
		body["request_id"] = id
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": body})
}
