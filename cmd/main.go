package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/e-study-backend/config"
	"github.com/vnkhanh/e-study-backend/controllers"
	"github.com/vnkhanh/e-study-backend/routes"
	"github.com/vnkhanh/e-study-backend/services"
	"github.com/vnkhanh/e-study-backend/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	config.InitDB()

	// Khởi tạo Gemini client + các service dùng chung
	gemini, err := services.NewGeminiClient(context.Background(), services.GeminiConfigFromEnv())
	if err != nil {
		log.Fatal("Không khởi tạo được Gemini client:", err)
	}
	defer gemini.Close()

	contexts := services.NewContextStore(config.DB)
	usage := services.NewDailyUsageChecker(config.DB)
	controllers.Setup(gemini, contexts, usage)

	// Dọn StudyContext hết hạn định kỳ
	utils.StartCleanupJob()

	r := gin.Default()

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	// Gọi SetupRouter để đăng ký route
	r = routes.SetupRouter(r, config.DB)

	// Route test server
	r.GET("/", func(c *gin.Context) {
		c.String(200, "E-Study server is running")
	})

	// Lấy PORT từ env
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // mặc định nếu không có PORT
	}

	log.Println("Server running at Port:" + port)
	r.Run(":" + port)
}
