package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/database"
	"github.com/celts/celts-backend/internal/logger"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/celts/celts-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	staffRepo := repository.NewStaffRepository(pool)
	authService := service.NewAuthService(cfg, nil)
	staffService := service.NewStaffService(staffRepo, authService)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Staff User ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Role
	fmt.Print("Enter Role (faculty/admin) [admin]: ")
	roleInput, _ := reader.ReadString('\n')
	roleInput = strings.TrimSpace(roleInput)
	if roleInput == "" {
		roleInput = string(model.RoleAdmin)
	}
	role := model.StaffRole(roleInput)
	if role != model.RoleFaculty && role != model.RoleAdmin {
		fmt.Println("Error: Role must be 'faculty' or 'admin'")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Create the Account ────────────────────────────────────────────
	user, err := staffService.Create(ctx, &model.CreateStaffRequest{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			fmt.Println("Error: A staff user with that email already exists")
			return
		}
		log.Fatal().Err(err).Msg("Failed to create staff user")
	}

	fmt.Printf("Created %s user '%s' (id %d)\n", user.Role, user.Email, user.ID)
}
