package router

import (
	"github.com/william-ls-liu/evaluating-psi/internal/history/controller"
	"github.com/william-ls-liu/evaluating-psi/pkg/httpframework"
)

// Init expects http framework to be initialized before calling this function
func Init() {
	api := httpframework.Instance().Group("/api/v1/history")
	{
		api.GET("/sessions", controller.NewController().ListSessions)
		api.GET("/sessions/:id", controller.NewController().GetSession)
	}
}
