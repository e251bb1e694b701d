package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/fredrickBO/TwendeBus/api/routes"
	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/internal/users"
	"github.com/fredrickBO/TwendeBus/pkg/cache"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db    *database.DB
	trips trips.Service
	users users.Service
}

func main() {
	bootstrapAdmin := flag.String("bootstrap-admin", "", "promote the account with this email to super_admin and exit")
	clean := flag.Bool("clean", false, "truncate all tables before seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg, routes.Models()...)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	runner := database.NewTxRunner(db.GetPostgreSQL(), cfg.Booking.TxMaxRetries)
	seeder := &Seeder{
		db:    db,
		trips: trips.NewService(trips.NewRepository(db.GetPostgreSQL()), runner, cache.NewService(db.GetRedisClient())),
		users: users.NewService(users.NewRepository(db.GetPostgreSQL())),
	}
	ctx := context.Background()

	if *bootstrapAdmin != "" {
		user, err := seeder.users.BootstrapSuperAdmin(ctx, *bootstrapAdmin)
		if err != nil {
			log.Fatalf("Failed to promote %s: %v", *bootstrapAdmin, err)
		}
		fmt.Printf("✅ %s is now %s\n", user.Email, user.Role)
		return
	}

	fmt.Println("🌱 Starting TwendeBus database seeder...")
	if *clean {
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
		fmt.Println("✅ Database cleaned")
	}

	if err := seeder.SeedAll(ctx); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("🎉 Seeding completed")
}

// CleanDatabase truncates every table the API owns
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"notifications",
		"cancellations",
		"transactions",
		"booking_seats",
		"bookings",
		"trip_seats",
		"trips",
		"route_stops",
		"routes",
		"users",
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := s.db.PostgreSQL.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// SeedAll creates demo accounts, routes and a week of departures
func (s *Seeder) SeedAll(ctx context.Context) error {
	if err := s.SeedUsers(ctx); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := s.SeedRoutes(ctx); err != nil {
		return fmt.Errorf("failed to seed routes: %w", err)
	}

	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

// SeedUsers creates passenger and staff accounts sharing the password "qwerty"
func (s *Seeder) SeedUsers(ctx context.Context) error {
	fmt.Println("  👤 Seeding users...")

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		firstName string
		lastName  string
		email     string
		role      constants.Role
		balance   int64
	}{
		{"Admin", "User", "admin@twendebus.co.ke", constants.RoleAdmin, 0},
		{"Support", "Desk", "support@twendebus.co.ke", constants.RoleSupport, 0},
		{"Wanjiru", "Kamau", "wanjiru@example.com", constants.RolePassenger, 5000},
		{"Otieno", "Odhiambo", "otieno@example.com", constants.RolePassenger, 1500},
	}

	for _, data := range usersData {
		user := users.User{
			FirstName:     data.firstName,
			LastName:      data.lastName,
			Email:         data.email,
			Password:      string(hashedPassword),
			Role:          data.role,
			WalletBalance: decimal.NewFromInt(data.balance),
		}
		if err := s.db.PostgreSQL.WithContext(ctx).Create(&user).Error; err != nil {
			if database.IsDuplicateKey(err) {
				fmt.Printf("    ↪ %s already exists\n", data.email)
				continue
			}
			return fmt.Errorf("failed to create user %s: %w", data.email, err)
		}
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}
	return nil
}

// SeedRoutes creates routes with stops and two departures a day for a week
func (s *Seeder) SeedRoutes(ctx context.Context) error {
	fmt.Println("  🚌 Seeding routes and trips...")

	// Seeding runs out-of-band with admin rights
	seedAdmin := identity.Caller{UserID: uuid.New(), Role: constants.RoleSuperAdmin}

	routesData := []struct {
		req      trips.CreateRouteRequest
		fare     int64
		capacity int
	}{
		{trips.CreateRouteRequest{
			Name: "Nairobi - Nakuru", Origin: "Nairobi CBD", Destination: "Nakuru",
			Stops: []string{"Nairobi CBD", "Westlands", "Kikuyu", "Naivasha", "Gilgil", "Nakuru"},
		}, 600, 33},
		{trips.CreateRouteRequest{
			Name: "Nairobi - Mombasa", Origin: "Nairobi CBD", Destination: "Mombasa",
			Stops: []string{"Nairobi CBD", "Athi River", "Emali", "Mtito Andei", "Voi", "Mombasa"},
		}, 1500, 49},
		{trips.CreateRouteRequest{
			Name: "Thika Road Express", Origin: "Nairobi CBD", Destination: "Thika",
			Stops: []string{"Nairobi CBD", "Roysambu", "Ruiru", "Juja", "Thika"},
		}, 150, 14},
	}

	day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	for _, data := range routesData {
		route, err := s.trips.CreateRoute(ctx, seedAdmin, data.req)
		if err != nil {
			return fmt.Errorf("failed to create route %s: %w", data.req.Name, err)
		}
		fmt.Printf("    ✅ Created route: %s (%d stops)\n", route.Name, len(route.Stops))

		for d := 0; d < 7; d++ {
			// 07:00 and 17:00 East Africa Time
			for _, hour := range []int{4, 14} {
				_, err := s.trips.CreateTrip(ctx, seedAdmin, trips.CreateTripRequest{
					RouteID:       route.ID.String(),
					Fare:          decimal.NewFromInt(data.fare),
					Capacity:      data.capacity,
					DepartureTime: day.Add(time.Duration(d*24+hour) * time.Hour),
				})
				if err != nil {
					return fmt.Errorf("failed to create trip on %s: %w", route.Name, err)
				}
			}
		}
	}
	return nil
}
