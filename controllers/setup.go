package controllers

import (
	"github.com/vnkhanh/e-study-backend/services"
)

// Các service dùng chung cho controllers, khởi tạo một lần từ main
var (
	AI       services.TextGenerator
	Gen      *services.Generator
	Contexts *services.ContextStore
	Usage    services.UsageChecker
)

func Setup(ai services.TextGenerator, contexts *services.ContextStore, usage services.UsageChecker) {
	AI = ai
	Gen = services.NewGenerator(ai)
	Contexts = contexts
	Usage = usage
}
