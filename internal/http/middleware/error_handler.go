package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/homecare-backend/internal/logger"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Типизированные доменные ошибки переводятся в свой статус и код,
// всё остальное маскируется как внутренняя ошибка.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": appErr.Message,
				"code":  string(appErr.Code),
			})
			return
		}

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			statusCode, message = http.StatusNotFound, "пользователь не найден"
		case errors.Is(err, repository.ErrProposalNotFound):
			statusCode, message = http.StatusNotFound, "предложение не найдено"
		case errors.Is(err, repository.ErrPropertyNotFound):
			statusCode, message = http.StatusNotFound, "дом не найден"
		case errors.Is(err, repository.ErrAppointmentNotFound):
			statusCode, message = http.StatusNotFound, "визит не найден"
		case errors.Is(err, repository.ErrConversationNotFound):
			statusCode, message = http.StatusNotFound, "диалог не найден"
		case errors.Is(err, repository.ErrMaintenanceTaskNotFound):
			statusCode, message = http.StatusNotFound, "задача обслуживания не найдена"
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
