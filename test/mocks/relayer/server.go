package relayer

import (
	"net/http"

	"github.com/gin-gonic/gin"

	relaypay "github.com/reserve-vault/relaypay/go"
)

// Handler serves the relayer HTTP API backed by r:
//
//	POST /payment/verify
//	POST /payment/settle
//
// Transport failures from scripted outcomes become 503 responses.
func (r *Relayer) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/payment/verify", func(c *gin.Context) {
		var request relaypay.PaymentRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := r.Verify(c.Request.Context(), request)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	router.POST("/payment/settle", func(c *gin.Context) {
		var request relaypay.PaymentRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := r.Settle(c.Request.Context(), request)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	return router
}
