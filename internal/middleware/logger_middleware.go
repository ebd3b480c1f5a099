package middleware

import (
	"time"

	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger - Gin middleware для логирования запросов.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		// Сырой query string, если есть
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}

		// Обрабатываем запрос следующим middleware/обработчиком
		c.Next()

		latency := time.Since(start)

		log.Infow("Request handled",
			"status_code", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
