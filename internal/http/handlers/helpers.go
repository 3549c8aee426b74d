package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
)

// respondError переводит доменную ошибку в HTTP ответ.
// Неизвестные ошибки уходят в централизованный обработчик.
func respondError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, gin.H{
			"error": appErr.Message,
			"code":  string(appErr.Code),
		})
		return
	}

	_ = c.Error(err)
}

// requestMeta собирает user-agent и IP запроса для сессии.
func requestMeta(c *gin.Context) map[string]string {
	meta := map[string]string{}
	if ua := c.GetHeader("User-Agent"); ua != "" {
		meta["user_agent"] = ua
	}
	if ip := c.ClientIP(); ip != "" {
		meta["ip"] = ip
	}
	return meta
}

// abortUnauthorized единый ответ на отсутствие пользователя в контексте.
func abortUnauthorized(c *gin.Context) {
	respondError(c, apperror.ErrUnauthorized)
}
