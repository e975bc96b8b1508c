// Command createadmin seeds an initial admin user. Email and password come
// from ADMIN_EMAIL / ADMIN_PASSWORD, with development defaults.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/repository"
	"github.com/groove-academy/groove-api/pkg/config"
	"github.com/groove-academy/groove-api/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	email := envOr("ADMIN_EMAIL", "admin@grooveacademy.com")
	password := envOr("ADMIN_PASSWORD", "admin123")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)

	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		log.Fatalf("failed to check existing admin: %v", err)
	}
	if exists {
		log.Printf("admin %s already exists, nothing to do", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Admin",
		LastName:     "Groove",
		Role:         models.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	log.Printf("admin created: %s (%s)", admin.Email, admin.ID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
