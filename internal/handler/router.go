package handler

import (
	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, bus *eventbus.Bus, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(ActorMiddleware())

	h := NewHandler(db, rdb, bus, cfg)

	api := r.Group("/api/v1")
	{
		order := api.Group("/order")
		{
			order.POST("/create", h.CreateOrder)
			order.GET("/detail", h.GetOrder)
			order.GET("/list", h.ListOrders)
			order.PATCH("/status", h.UpdateOrderStatus)
		}

		pay := api.Group("/pay")
		{
			pay.GET("/qr", h.PaymentQR)
			pay.POST("/webhook", h.PaymentWebhook)
			pay.POST("/cash", h.ConfirmCashPayment)
		}

		api.GET("/stream", h.Stream)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
