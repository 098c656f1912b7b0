// Command foodorder-seed prepares a database: it applies the schema, loads the
// starter menu, provisions an admin and can place a test order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/services/accounts"
	"github.com/dabbahouse/foodorder/internal/app/services/catalog"
	"github.com/dabbahouse/foodorder/internal/app/services/orders"
	"github.com/dabbahouse/foodorder/internal/app/storage/postgres"
	"github.com/dabbahouse/foodorder/internal/config"
	"github.com/dabbahouse/foodorder/internal/platform/database"
	"github.com/dabbahouse/foodorder/internal/platform/migrations"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config (defaults to $FOODORDER_CONFIG)")
		envFile       = flag.String("env", ".env", "Optional .env file")
		skipMenu      = flag.Bool("skip-menu", false, "Do not load the starter menu")
		adminUsername = flag.String("admin-username", os.Getenv("SEED_ADMIN_USERNAME"), "Admin to create or reset")
		adminPassword = flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "Password for the admin")
		adminEmail    = flag.String("admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "Email for the admin")
		adminName     = flag.String("admin-name", "", "Display name for the admin")
		testOrder     = flag.Bool("test-order", false, "Place an order for testuser@example.com")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)
	if !cfg.Database.Enabled() {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.OpenWithConfig(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := migrations.Apply(ctx, db); err != nil {
		log.WithError(err).Fatal("apply schema")
	}
	store := postgres.New(db)

	if !*skipMenu {
		n, err := catalog.New(store, log).SeedDefaults(ctx)
		if err != nil {
			log.WithError(err).Fatal("seed menu")
		}
		log.WithField("items", n).Info("menu seeded")
	}

	acct := accounts.New(store, store, nil, log)
	if *adminUsername != "" {
		if *adminPassword == "" {
			log.Fatal("--admin-password is required with --admin-username")
		}
		admin, err := acct.EnsureAdmin(ctx, accounts.AdminRegistration{
			Username: *adminUsername,
			Email:    *adminEmail,
			Password: *adminPassword,
			Name:     *adminName,
		})
		if err != nil {
			log.WithError(err).Fatal("ensure admin")
		}
		log.WithField("admin_id", admin.ID).WithField("username", admin.Username).Info("admin ready")
	}

	if *testOrder {
		orderID, err := placeTestOrder(ctx, acct, orders.New(store, store, log), store)
		if err != nil {
			log.WithError(err).Fatal("place test order")
		}
		log.WithField("order_id", orderID).Info("test order placed")
	}
}

func placeTestOrder(ctx context.Context, acct *accounts.Service, svc *orders.Service, store *postgres.Store) (string, error) {
	user, _, err := acct.ResolveSSOUser(ctx, "testuser@example.com", "Test User")
	if err != nil {
		return "", err
	}
	profile := identity.Profile{
		Name:     "Test User",
		Phone:    "03001234567",
		Country:  "Pakistan",
		Province: "Punjab",
		Address:  "123 Test St",
	}
	if user, err = acct.UpdateProfile(ctx, user.ID, profile); err != nil {
		return "", err
	}

	menu, err := catalog.New(store, nil).ListAvailable(ctx, "")
	if err != nil {
		return "", err
	}
	if len(menu) == 0 {
		return "", fmt.Errorf("menu is empty")
	}
	if len(menu) > 2 {
		menu = menu[:2]
	}

	req := orders.PlaceRequest{
		Customer: order.Customer{
			Name:    user.Name,
			Phone:   user.Phone,
			Email:   user.Email,
			Address: user.Address,
			City:    user.Province,
		},
		Notes:  "Test order created by the seed tool",
		UserID: &user.ID,
	}
	total := decimal.Zero
	for _, item := range menu {
		req.Items = append(req.Items, orders.LineRequest{MenuItemID: item.ID, Quantity: 1})
		total = total.Add(item.Price)
	}
	req.TotalPrice = total

	placed, err := svc.PlaceOrder(ctx, req)
	if err != nil {
		return "", err
	}
	return placed.OrderID, nil
}
