package admin

import (
	"net/http"

	"treehole/appcontext"
)

func MetricsHandler(collector *Collector) func(*appcontext.AppContext) {
	return func(ctx *appcontext.AppContext) {
		response, err := collector.Collect(ctx.Context)
		if err != nil {
			ctx.Logger.Errorw("failed to collect metrics", "error", err)
			ctx.Error(http.StatusInternalServerError, "Failed to collect metrics")
			return
		}
		ctx.JSON(http.StatusOK, response)
	}
}
