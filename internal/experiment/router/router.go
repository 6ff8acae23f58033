package router

import (
	"github.com/william-ls-liu/evaluating-psi/internal/experiment/controller"
	"github.com/william-ls-liu/evaluating-psi/pkg/httpframework"
)

// Init expects http framework to be initialized before calling this function
func Init() {
	api := httpframework.Instance().Group("/api/v1/experiment")
	{
		api.GET("/status", controller.NewController().Status)
		api.POST("/session", controller.NewController().StartSession)
		api.PUT("/threshold", controller.NewController().SetThreshold)

		api.POST("/baseline/start", controller.NewController().StartBaseline)
		api.POST("/baseline/stop", controller.NewController().StopBaseline)
		api.POST("/baseline/step", controller.NewController().CollectBaselineStep)
		api.POST("/baseline/step/finish", controller.NewController().FinishBaselineStep)
		api.GET("/baseline/step/graph", controller.NewController().BaselineGraph)
		api.POST("/baseline/step/save", controller.NewController().SaveBaselineStep)

		api.POST("/trial/start", controller.NewController().StartTrial)
		api.POST("/trial/stop", controller.NewController().StopTrial)
		api.POST("/trial/save", controller.NewController().SaveTrial)
		api.GET("/trial/graph", controller.NewController().TrialGraph)
		api.GET("/trial/cop", controller.NewController().CoPGraph)
	}
}
