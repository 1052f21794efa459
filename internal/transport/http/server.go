package http

import (
	"github.com/gin-gonic/gin"

	"ragvault/internal/bootstrap"
	"ragvault/internal/transport/http/handler"
	"ragvault/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.AuthService)
	collectionHandler := handler.NewCollectionHandler(app.CollectionService)
	documentHandler := handler.NewDocumentHandler(app.DocumentService, app.IngestService)
	searchHandler := handler.NewSearchHandler(app.DocumentService)

	jwtSecret := app.Config.Auth.JWTSecret

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(jwtSecret), authHandler.Me)

	collections := v1.Group("/collections")
	collections.Use(middleware.AuthJWT(jwtSecret))
	collections.POST("", collectionHandler.Create)
	collections.GET("", collectionHandler.List)
	collections.GET("/:id", collectionHandler.Get)
	collections.DELETE("/:id", collectionHandler.Delete)

	documents := v1.Group("/documents")
	documents.Use(middleware.AuthJWT(jwtSecret))
	documents.POST("", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.GET("/ingest/:run_id/events", documentHandler.Events)

	v1.POST("/search", middleware.AuthJWT(jwtSecret), searchHandler.Search)

	return router
}
