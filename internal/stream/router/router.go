package router

import (
	"github.com/william-ls-liu/evaluating-psi/internal/stream/controller"
	"github.com/william-ls-liu/evaluating-psi/pkg/httpframework"
)

// Init expects http framework to be initialized before calling this function
func Init() {
	api := httpframework.Instance().Group("/api/v1/stream")
	{
		api.GET("/live", controller.NewController().Live)
	}
}
