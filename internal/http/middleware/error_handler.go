package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

// ErrorHandler отвечает на ошибки, добавленные через c.Error, если ответ ещё не записан.
// Сообщения AppError отдаются клиенту, остальные ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, message := http.StatusInternalServerError, "внутренняя ошибка сервера"

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code != apperror.ErrCodeInternal {
			status, message = appErr.HTTPStatus, appErr.Message
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"status":     status,
			"request_id": RequestID(c),
		}).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error("Ошибка обработки запроса")
		} else {
			entry.Warn("Ошибка обработки запроса")
		}

		c.JSON(status, gin.H{"error": message})
	}
}
