package handlers

import (
	"metafactory-twin/services"
)

// main.go 에서 초기화하는 서비스들
var (
	Dashboard *services.Dashboard
	Commands  *services.CommandService
	Chatbot   *services.ChatbotService
	Stage     *services.Stage
	Planner   *services.RoutePlanner
	TwinAPI   *services.DigitalTwinClient
)
