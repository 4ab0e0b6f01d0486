package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/database"
	"github.com/celts/celts-backend/internal/logger"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/celts/celts-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	authService := service.NewAuthService(cfg, nil)
	studentService := service.NewStudentService(studentRepo, authService)

	fmt.Println("=== Seeding 50 Students ===")

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
		"Rafi Ahmad", "Siska Saraswati", "Toni Setiawan", "Umi Kalsum", "Vina Panduwinata",
		"Wahyu Hidayat", "Xena Maharani", "Yudi Pratama", "Zaki Anwar", "Alifia Zahra",
		"Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita", "Fikri Maulana",
		"Gali Rakasiwi", "Hani Hanifah", "Iqbal Ramadhan", "Jasmine Azzahra", "Kevin Sanjaya",
		"Larasati Dewi", "Miko Pambudi", "Nia Ramadhani", "Oscar Lawalata", "Puput Melati",
		"Reza Rahadian", "Sari Nila", "Tigor Siahaan", "Utari Maharani", "Vicky Prasetyo",
	}

	successCount := 0
	for i, name := range names {
		req := &model.CreateStudentRequest{
			RegistrationNo: fmt.Sprintf("CELTS%05d", i+1),
			Name:           name,
			Email:          fmt.Sprintf("student%d@example.edu", i+1),
			Password:       "celts-test-pass",
		}

		if _, err := studentService.Create(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicateRegistration) {
				fmt.Printf("Skipping %s: already exists\n", req.RegistrationNo)
				continue
			}
			log.Error().Err(err).Str("registration_no", req.RegistrationNo).Msg("Seed failed")
			continue
		}
		successCount++
	}

	fmt.Printf("Seeded %d students\n", successCount)
}
