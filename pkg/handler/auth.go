package handler

import (
	"net/http"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ApiAuth check X-Api-Key against the configured bcrypt hash
func ApiAuth(conf *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" || !utils.MatchApiKey(key, conf.ApiKeyHash) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": config.UNAUTHORIZED})
			return
		}
		c.Next()
	}
}
