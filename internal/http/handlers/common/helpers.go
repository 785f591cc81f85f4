package common

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/dto"
	"github.com/ignatzorin/disaster-backend/internal/http/middleware"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

// ErrInvalidUUID возвращается при неверном формате UUID.
var ErrInvalidUUID = errors.New("неверный формат UUID")

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}
	return parsed, nil
}

// ParseIntQuery читает целый query-параметр, при ошибке возвращает fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// ParseFloatQuery читает вещественный query-параметр. ok=false, если параметр не задан.
func ParseFloatQuery(c *gin.Context, key string) (value float64, ok bool, err error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, err
	}
	return value, true, nil
}

// RespondError отправляет ошибку в едином формате.
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{Error: message})
}

// RespondAppError переводит ошибку use case в HTTP ответ.
// Для неизвестных и внутренних ошибок клиент получает общее сообщение.
func RespondAppError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "внутренняя ошибка сервера"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code != apperror.ErrCodeInternal {
		status, message = appErr.HTTPStatus, appErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Log.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": middleware.RequestID(c),
		}).WithError(err).Error("Ошибка обработки запроса")
	}

	RespondError(c, status, message)
}

func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "некорректный запрос"
	}
	RespondError(c, http.StatusBadRequest, message)
}

// RespondJSON отправляет JSON с заданным статусом.
func RespondJSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}
