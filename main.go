package main

import (
	"log"
	"metafactory-twin/handlers"
	"metafactory-twin/models"
	"metafactory-twin/services"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// .env 파일 로드
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env 파일을 찾을 수 없습니다.")
	}
	cfg := services.LoadConfig()

	// 이벤트 로그 DB (없어도 대시보드는 동작)
	if err := services.InitDatabase(); err != nil {
		log.Printf("⚠️ DB 없이 실행합니다: %v", err)
	}
	services.InitLogging(cfg.LogFlushSize, cfg.LogFlushInterval)
	defer services.StopLogging() // 종료 시 남은 로그 저장

	// ========================================
	// 씬 + Synchronizer
	// ========================================
	stage := services.NewStage(cfg.StageZUp)
	syncer := services.NewSynchronizer(
		services.NewAMRScene(stage, cfg.AMRScale),
		models.NewMotionConfig(cfg.MetersPerUnit, cfg.AMRMoveSpeedMMPerSec, cfg.AMRYawSpeedDegPerSec,
			cfg.AMRPosEpsMM, cfg.AMRYawEpsDeg, cfg.StageZUp),
	)
	mailbox := services.NewMailbox()

	var cars *services.LineCarSpawner
	if cfg.LineCarEnabled {
		lc := services.DefaultLineCarConfig()
		lc.Count = cfg.LineCarCount
		lc.Speed = cfg.LineCarSpeed
		lc.Mode = cfg.LineCarMode
		cars = services.NewLineCarSpawner(stage, lc)
		cars.SpawnAll()
	}

	// ========================================
	// 오퍼레이션 서버 폴링 → 대시보드
	// ========================================
	client := services.NewDigitalTwinClient(cfg.OpServerURL, cfg.MapCode, cfg.RequestTimeout)
	dashboard := services.NewDashboard()
	dashboard.SetNotifier(handlers.Manager.Broadcast)
	dashboard.Attach(client, mailbox, syncer)

	var pinger *services.HTTPPinger
	if cfg.FleetURL != "" {
		pinger = services.NewHTTPPinger(cfg.FleetURL, cfg.FleetPingInterval, 0, func(alive bool) {
			services.LogAliveChange(models.StatusFleetServer, alive)
			mailbox.Post(func() { dashboard.SetStatus(models.StatusFleetServer, alive) })
		})
	}

	frames := services.NewFrameLoop(mailbox, syncer, cars, stage, cfg.FrameRate, cfg.SceneBroadcastInterval)
	frames.SetBroadcaster(func(frame models.SceneFrame) {
		handlers.Manager.Broadcast(models.MessageTypeSceneFrame, frame)
	})

	handlers.Dashboard = dashboard
	handlers.Stage = stage
	handlers.TwinAPI = client
	handlers.Commands = services.NewCommandService(client, cfg.MapCode)
	handlers.Chatbot = services.NewChatbotService(cfg.ChatServerURL, cfg.ChatCacheDir, cfg.ChatVerifySSL)
	handlers.Planner = services.NewRoutePlanner()

	go handlers.Manager.Start()
	frames.Start()
	client.Start(cfg.PollInterval)
	if pinger != nil {
		pinger.Start()
	}

	// ========================================
	// HTTP / WebSocket
	// ========================================
	app := fiber.New()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("MetaFactory 디지털 트윈 서버가 실행 중입니다.")
	})

	registerRoutes(app)

	// 종료 신호 → 폴링/프레임 정지 후 서버 종료
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("🛑 종료 신호 수신")

		client.Stop()
		if pinger != nil {
			pinger.Stop()
		}
		frames.Stop()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	log.Printf("🚀 서버 시작: %s", cfg.ListenAddr)
	log.Printf("📡 운영 서버: %s (map=%s, poll=%v)", cfg.OpServerURL, cfg.MapCode, cfg.PollInterval)
	log.Println("👀 WebSocket: /websocket/viewer")
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Printf("❌ 서버 오류: %v", err)
	}
}

func registerRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", handlers.HandleHealth)
	api.Get("/dashboard", handlers.HandleDashboard)
	api.Get("/amrs", handlers.HandleAMRs)
	api.Get("/amrs/:id", handlers.HandleAMR)
	api.Get("/containers", handlers.HandleContainers)
	api.Get("/missions", handlers.HandleMissions)
	api.Post("/missions/cancel", handlers.HandleMissionCancel)
	api.Get("/scene", handlers.HandleScene)

	// 운영자 명령
	api.Post("/commands", handlers.HandleCommand)

	// 챗봇
	api.Post("/chat", handlers.HandleChat)
	api.Get("/chat/history", handlers.HandleChatHistory)
	api.Delete("/chat", handlers.HandleChatClear)
	api.Post("/chat/save", handlers.HandleChatSave)

	// 경로 미리보기
	api.Post("/pathfinder", handlers.HandlePathfinding)

	// 이벤트 로그 조회
	logsAPI := api.Group("/logs")
	logsAPI.Get("/recent", handlers.HandleGetRecentLogs)     // 최근 로그
	logsAPI.Get("/range", handlers.HandleGetLogsByTimeRange) // 시간 범위
	logsAPI.Get("/type", handlers.HandleGetLogsByEventType)  // 이벤트 타입별
	logsAPI.Get("/stats", handlers.HandleGetLogStats)        // 통계

	// WebSocket
	app.Use("/websocket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/websocket/viewer", websocket.New(handlers.HandleViewerWebSocket))
}
