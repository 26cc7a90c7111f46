package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "ai-teacher/internal/app"
	"ai-teacher/internal/bootstrap"
	"ai-teacher/internal/prompt"
	"ai-teacher/internal/rag"
	"ai-teacher/internal/topic"
	"ai-teacher/internal/transport/http/handler"
	"ai-teacher/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(app.Config.CORS.AllowOrigins))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config
	log := app.Logger
	workspace := appsvc.NewWorkspace(cfg.Storage.UsersDir)
	classifier := topic.NewClassifier(app.Topics, app.Watsonx, cfg.Storage.GeneralRefPath, nil, log)
	builder := prompt.NewBuilder(app.Topics)
	retriever := rag.NewRetriever(app.Stores, log)
	references := appsvc.NewReferenceBuilder(app.Stores, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, log)

	var documents appsvc.DocumentRecorder
	var turns appsvc.TurnReader
	if app.MySQL != nil {
		documents = app.Documents
		turns = app.Turns
	}
	var publisher appsvc.TurnPublisher
	if app.Publisher != nil {
		publisher = app.Publisher
	}
	var historyCache appsvc.HistoryCache
	if app.HistoryCache != nil {
		historyCache = app.HistoryCache
	}

	uploadService := appsvc.NewUploadService(
		workspace,
		app.Sessions,
		classifier,
		app.OpenAI,
		app.Stores,
		documents,
		appsvc.UploadServiceConfig{ChunkSize: cfg.RAG.ChunkSize, ChunkOverlap: cfg.RAG.ChunkOverlap},
		log,
	)
	chatService := appsvc.NewChatService(appsvc.ChatServiceDeps{
		Sessions:     app.Sessions,
		Retriever:    retriever,
		Builder:      builder,
		LLM:          app.Watsonx,
		Publisher:    publisher,
		Turns:        turns,
		HistoryCache: historyCache,
		TopK:         cfg.RAG.TopK,
		Logger:       log,
	})
	topicService := appsvc.NewTopicService(app.Topics, classifier, builder, references, app.Sessions, log)
	mediaService := appsvc.NewMediaService(workspace, app.OpenAI, app.Speech, log)

	uploadHandler := handler.NewUploadHandler(uploadService, int64(cfg.Storage.MaxUploadMB)<<20)
	chatHandler := handler.NewChatHandler(chatService)
	topicHandler := handler.NewTopicHandler(topicService)
	mediaHandler := handler.NewMediaHandler(mediaService)

	api := router.Group("/")
	api.Use(middleware.UserSession(middleware.SessionConfig{
		Secret:     cfg.Auth.JWTSecret,
		CookieName: cfg.Auth.CookieName,
		TTL:        time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute,
		Secure:     cfg.Auth.CookieSecure,
	}))
	api.POST("/upload-pdf/", uploadHandler.UploadPDF)
	api.POST("/simplify/", chatHandler.Simplify)
	api.POST("/help-chat/", chatHandler.HelpChat)
	api.GET("/history/", chatHandler.History)
	api.POST("/generate-image/", mediaHandler.GenerateImage)
	api.POST("/synthesize/", mediaHandler.Synthesize)
	api.GET("/topics/", topicHandler.List)
	api.POST("/confirm-topic/", topicHandler.Confirm)
	api.POST("/add-topic/", middleware.AdminKey(cfg.Admin.TopicKeyHash), topicHandler.Add)

	return router
}
