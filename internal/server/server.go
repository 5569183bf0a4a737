package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/logs"
	"github.com/Scrimzay/conquestsim/internal/types"
	"github.com/Scrimzay/conquestsim/internal/world"
)

type Options struct {
	CommandsPerSecond float64
	CommandBurst      int
}

func SetupRouter(gameWorld *world.World, hub *Hub, dispatcher *Dispatcher, opts Options) *gin.Engine {
	if opts.CommandsPerSecond <= 0 {
		opts.CommandsPerSecond = 10
	}
	if opts.CommandBurst <= 0 {
		opts.CommandBurst = 20
	}
	limits := newLimiterSet(opts.CommandsPerSecond, opts.CommandBurst)

	r := gin.New()
	r.Use(gin.Recovery(), accessLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	api.GET("/snapshot", snapshotHandler(gameWorld))

	cmds := api.Group("", limits.middleware())
	cmds.POST("/join", handle(dispatcher.Join))
	cmds.POST("/leave", handle(dispatcher.Leave))
	cmds.POST("/spawn", handle(dispatcher.Spawn))
	cmds.POST("/attack", handle(dispatcher.Attack))
	cmds.POST("/expand", handle(dispatcher.Expand))
	cmds.POST("/build/port", handle(dispatcher.BuildPort))
	cmds.POST("/build/city", handle(dispatcher.BuildCity))

	r.GET("/ws", HandleWebsocket(hub, gameWorld, dispatcher, limits))

	return r
}

func snapshotHandler(gameWorld *world.World) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gameWorld.Snapshot())
	}
}

// handle binds the JSON body into T and answers with the command result.
func handle[T any](run func(T) types.Response) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd T
		if err := c.ShouldBindJSON(&cmd); err != nil {
			resp := types.NewResponse(types.CodeReqParamError, nil).WithDetail(err.Error())
			c.JSON(resp.Code.HTTPStatus(), resp)
			return
		}
		resp := run(cmd)
		c.JSON(resp.Code.HTTPStatus(), resp)
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		logs.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
