package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/prepdeck/prepdeck/internal/api/handlers"
	"github.com/prepdeck/prepdeck/internal/api/middleware"
)

type Deps struct {
	Call       *handlers.CallHandler
	Interview  *handlers.InterviewHandler
	Schedule   *handlers.ScheduleHandler
	Transcript *handlers.TranscriptHandler
	WS         *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/call/start", d.Call.Start)
	auth.GET("/call/:call_id", d.Call.Get)
	auth.POST("/call/:call_id/disconnect", d.Call.Disconnect)
	auth.POST("/call/:call_id/message", d.Call.Send)

	auth.POST("/interviews/generate", d.Interview.Generate)
	auth.GET("/interviews", d.Interview.ListMine)
	auth.GET("/interviews/latest", d.Interview.ListLatest)
	auth.GET("/interviews/:interview_id", d.Interview.GetByID)
	auth.GET("/interviews/:interview_id/feedback", d.Interview.GetFeedback)

	auth.GET("/transcripts/:call_id", d.Transcript.Get)

	auth.POST("/schedule", d.Schedule.Create)
	auth.GET("/schedule", d.Schedule.List)
	auth.DELETE("/schedule/:schedule_id", d.Schedule.Cancel)

	// WebSocket
	auth.GET("/ws/call/:call_id", d.WS.CallWS)
}
