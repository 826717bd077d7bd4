package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ReportRateLimiter caps anonymous report submissions per client IP per day.
// A nil client disables the limit.
func ReportRateLimiter(rdb *redis.Client, queuePrefix string, limit int, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := queuePrefix + ":" + c.ClientIP()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.WithError(err).Error("redis error incrementing report count")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}

		// Set TTL only on the first hit of the window.
		if count == 1 {
			if err := rdb.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
				log.WithError(err).Error("redis error setting report limit TTL")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := rdb.TTL(ctx, key).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":     "Too many reports from this address, try again later",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
