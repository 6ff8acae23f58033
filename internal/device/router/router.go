package router

import (
	"github.com/gin-gonic/gin"

	"github.com/william-ls-liu/evaluating-psi/internal/device/controller"
	"github.com/william-ls-liu/evaluating-psi/pkg/httpframework"
)

// Init expects http framework to be initialized before calling this function
func Init() {
	api := httpframework.Instance().Group("/api/v1/device")
	{
		api.GET("", controller.NewController().Status)
		api.POST("/task", controller.NewController().CreateTask)
		api.DELETE("/task", controller.NewController().CloseTask)
		api.POST("/sampling/start", controller.NewController().StartSampling)
		api.POST("/sampling/stop", controller.NewController().StopSampling)
		api.POST("/self-test", controller.NewController().SelfTest)
	}
	httpframework.Instance().GET("/health", Health)
}

func Health(c *gin.Context) {
	c.JSON(200, gin.H{"message": "Application is up!!!"})
}
