package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/franciscosanchezn/gin-recipe-api/internal/config"
	"github.com/franciscosanchezn/gin-recipe-api/internal/database"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Parse command line flags
	role := flag.String("role", "admin", "User role (admin or user)")
	username := flag.String("username", "", "Username (defaults to dev-<role>)")
	password := flag.String("password", "dev-secret-123", "Password")
	flag.Parse()

	if *role != "admin" && *role != "user" {
		log.Fatalf("Unsupported role %q (admin or user)", *role)
	}
	if *username == "" {
		*username = "dev-" + *role
	}

	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.InitDatabase(database.DatabaseConfig{
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
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	users := services.NewUserService(db, services.NewBcryptHasher(bcrypt.DefaultCost))
	input := services.RegisterInput{
		Username: *username,
		Email:    fmt.Sprintf("%s@recipes.local", *username),
		Password: *password,
	}

	ctx := context.Background()
	if *role == "admin" {
		user, err := users.EnsureAdmin(ctx, input)
		if err != nil {
			log.Fatal("Failed to create admin:", err)
		}
		fmt.Printf("✓ Admin user ready: %s (ID: %d)\n", user.Username, user.ID)
	} else {
		user, err := users.Register(ctx, input)
		switch {
		case errors.Is(err, services.ErrConflict):
			fmt.Printf("User %s already exists!\n", *username)
		case err != nil:
			log.Fatal("Failed to create user:", err)
		default:
			fmt.Printf("✓ User created: %s (ID: %d)\n", user.Username, user.ID)
		}
	}

	fmt.Println("\nUse these credentials for testing:")
	fmt.Printf("curl -X POST -u '%s:%s' http://localhost:%d/api/token\n", *username, *password, conf.Port)
}
