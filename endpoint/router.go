package endpoint

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/ariebrainware/patient-portal/docs"
	"github.com/ariebrainware/patient-portal/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const (
	loginRateLimit   = 5
	loginRateWindow  = 15 * time.Minute
	uploadRateLimit  = 20
	uploadRateWindow = time.Hour
)

// SetupRouter builds the portal's gin engine.
func SetupRouter(cfg *config.Config, db *gorm.DB, deps *Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(DepsMiddleware(deps))
	router.Use(middleware.EndpointCallLogger())

	docs.SwaggerInfo.Title = cfg.AppName
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	router.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{
		Limit:  loginRateLimit,
		Window: loginRateWindow,
	}), Login)

	authed := router.Group("/")
	authed.Use(middleware.ValidateSession())
	{
		authed.DELETE("/logout", Logout)
		authed.GET("/token/validate", ValidateToken)
		authed.GET("/profile", GetProfile)
		authed.GET("/records", ListRecords)
		authed.GET("/records/:id", GetRecord)
		authed.GET("/appointments", ListAppointments)
		authed.GET("/account/activity", ListActivity)

		anemia := authed.Group("/anemia")
		anemia.POST("/upload", middleware.RateLimiter(middleware.RateLimitConfig{
			Limit:      uploadRateLimit,
			Window:     uploadRateWindow,
			KeyByEmail: true,
		}), UploadAnemiaImage)
		anemia.GET("/state", GetAnemiaState)
		anemia.GET("/analyses", ListAnalyses)
	}

	return router
}
