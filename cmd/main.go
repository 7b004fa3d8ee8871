package main

import (
	"context"
	"fmt"
	"time"

	_ "github.com/franciscosanchezn/gin-recipe-api/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-recipe-api/internal/auth"
	"github.com/franciscosanchezn/gin-recipe-api/internal/config"
	"github.com/franciscosanchezn/gin-recipe-api/internal/controllers"
	"github.com/franciscosanchezn/gin-recipe-api/internal/database"
	"github.com/franciscosanchezn/gin-recipe-api/internal/server"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/franciscosanchezn/gin-recipe-api/internal/storage"
	"github.com/franciscosanchezn/gin-recipe-api/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	db             *gorm.DB
	userService    services.UserService
	sessionManager *auth.SessionManager
	configuration  *config.Config
)

// @title Recipe API
// @version 1.0
// @description Recipe sharing API with comments, ratings and favorites
// @host localhost:8080
// @BasePath /
// @securityDefinitions.basic BasicAuth
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()

	// Initialize database connection
	setupDatabase(configuration)

	// Initialize services
	userService = services.NewUserService(db, services.NewBcryptHasher(bcrypt.DefaultCost))
	sessionManager = auth.NewSessionManager(userService, auth.NewGormSessionStore(db), configuration.SessionTTL)
	bootstrapAdmin()
	purgeExpiredSessions()

	// Initialize Gin router
	var router *gin.Engine = setupRouter()

	// Start the server
	log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
	checkPanicErr(router.Run(fmt.Sprintf("%v:%d", configuration.Host, configuration.Port)))
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
// LOG_LEVEL overrides the environment default when it parses
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
		gin.SetMode(gin.ReleaseMode)
	default:
		log.SetLevel(log.InfoLevel)
	}
	if level, err := log.ParseLevel(config.GetEnvWithDefault("LOG_LEVEL", "")); err == nil {
		log.SetLevel(level)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf)
	return conf
}

// setupDatabase opens the configured database and migrates the schema
func setupDatabase(conf *config.Config) *gorm.DB {
	var err error
	db, err = database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		URL:      conf.DatabaseURL,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)
	checkPanicErr(database.Migrate(db))
	return db
}

// bootstrapAdmin creates or promotes the configured admin account
func bootstrapAdmin() {
	if !configuration.HasAdminBootstrap() {
		log.Debug("No bootstrap admin configured")
		return
	}
	admin, err := userService.EnsureAdmin(context.Background(), services.RegisterInput{
		Username: configuration.AdminUsername,
		Email:    configuration.AdminEmail,
		Password: configuration.AdminPassword,
	})
	checkPanicErr(err)
	log.WithField("user_id", admin.ID).Info("Bootstrap admin ready")
}

// purgeExpiredSessions drops browser sessions that expired while the server was down
func purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	removed, err := sessionManager.CleanupExpired(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to purge expired sessions")
		return
	}
	log.WithField("removed", removed).Info("Expired sessions purged")
}

// setupImageStore returns the configured upload backend
func setupImageStore(conf *config.Config) storage.ImageStore {
	if conf.UploadBackend != "s3" {
		store, err := storage.NewLocalStore(conf.UploadDir, conf.UploadURLPrefix)
		checkPanicErr(err)
		return store
	}

	opts := storage.S3Options{
		Bucket:          conf.S3Bucket,
		Region:          conf.S3Region,
		PublicURL:       conf.S3PublicURL,
		Endpoint:        conf.S3Endpoint,
		AccessKeyID:     conf.S3AccessKeyID,
		SecretAccessKey: conf.S3SecretKey,
	}
	client, err := storage.NewS3Client(context.Background(), opts)
	checkPanicErr(err)
	log.WithField("bucket", conf.S3Bucket).Info("Storing uploads in S3")
	return storage.NewS3Store(client, opts)
}

// setupRouter wires services and controllers into the Gin router
// It returns the configured router
func setupRouter() *gin.Engine {
	templates, err := web.LoadTemplates()
	checkPanicErr(err)

	query := services.NewQueryService(db)
	return server.NewRouter(server.Dependencies{
		Config: configuration,
		Users:  userService,
		Content: controllers.ContentServices{
			Recipes:   services.NewRecipeService(db, query),
			Comments:  services.NewCommentService(db),
			Ratings:   services.NewRatingService(db),
			Favorites: services.NewFavoriteService(db),
			Query:     query,
			Images:    setupImageStore(configuration),
		},
		Tokens:    auth.NewTokenService(userService, []byte(configuration.JWTSecret), configuration.JWTIssuer, configuration.TokenTTL),
		Sessions:  sessionManager,
		Templates: templates,
	})
}
