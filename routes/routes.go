package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/controllers"
	"github.com/vnkhanh/e-study-backend/middleware"
	"github.com/vnkhanh/e-study-backend/ws"
)

func SetupRouter(r *gin.Engine, db *gorm.DB) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/logingoogle", controllers.GoogleLogin)
	}

	user := api.Group("/user")
	{
		user.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db))
		user.POST("/change-password", controllers.ChangePassword)

		// Nguồn tài liệu
		user.POST("/sources/upload", controllers.UploadSource)
		user.POST("/sources", controllers.CreateTextSource)
		user.GET("/sources", controllers.GetSources)
		user.GET("/sources/:id", controllers.GetSourceDetail)
		user.DELETE("/sources/:id", controllers.DeleteSource)

		// Ngữ cảnh học tập (cache chunks)
		user.GET("/contexts/latest", controllers.GetLatestContext)
		user.GET("/contexts/:id", controllers.GetContextDetail)

		// Quiz
		user.POST("/quizzes/generate", controllers.GenerateQuiz)
		user.GET("/quizzes", controllers.GetQuizSets)
		user.GET("/quizzes/:id/questions", controllers.GetQuizQuestions)
		user.DELETE("/quizzes/:id", controllers.DeleteQuizSet)
		user.POST("/quizzes/:id/attempts", controllers.StartQuizAttempt)
		user.GET("/quizzes/:id/attempts", controllers.GetQuizAttemptsBySet)
		user.POST("/quizzes/:id/submit", controllers.SubmitQuiz)
		user.PATCH("/quiz-attempts/:attemptID", controllers.UpdateQuizAttempt)
		user.POST("/quiz-attempts/:attemptID/complete", controllers.CompleteQuizAttempt)

		// Flashcard
		user.POST("/flashcards/generate", controllers.GenerateFlashcards)
		user.GET("/flashcards", controllers.GetFlashcardSets)
		user.GET("/flashcards/:id/cards", controllers.GetFlashcards)
		user.DELETE("/flashcards/:id", controllers.DeleteFlashcardSet)
		user.POST("/flashcards/:id/attempts", controllers.StartFlashcardAttempt)
		user.POST("/flashcard-attempts/:attemptID/rate", controllers.RateFlashcard)
		user.POST("/flashcard-attempts/:attemptID/complete", controllers.CompleteFlashcardAttempt)

		// Ghi chú
		user.POST("/notes/generate", controllers.GenerateNote)
		user.GET("/notes", controllers.GetNotes)
		user.GET("/notes/:id", controllers.GetNoteDetail)
		user.PUT("/notes/:id", controllers.UpdateNote)
		user.DELETE("/notes/:id", controllers.DeleteNote)
		user.GET("/notes/:id/audio", controllers.GetNoteAudio)
	}

	admin := api.Group("/admin")
	{
		admin.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db), middleware.RequireRoles("admin"))
		admin.POST("/lecturers", controllers.AdminCreateLecturer)
	}

	r.GET("/ws/source/:id", ws.HandleSourceWebSocket)
	r.GET("/ws/status", ws.HandleGlobalWebSocket)

	return r
}
