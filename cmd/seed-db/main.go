package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/soukly/storefront/internal/domain/auth"
	"github.com/soukly/storefront/internal/domain/coupon"
	"github.com/soukly/storefront/internal/domain/settings"
	"github.com/soukly/storefront/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Category string          `json:"category"`
	Images   []string        `json:"images"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SOUK_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SOUK_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SOUK_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SOUK_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SOUK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedSettings(ctx, pool); err != nil {
		return errors.Wrap(err, "seed settings")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products (id, name, price, quantity, category, images)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		quantity = EXCLUDED.quantity,
		category = EXCLUDED.category,
		images = EXCLUDED.images`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Price, p.Quantity, p.Category, p.Images,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const insertSettingSQL = `INSERT INTO settings (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO NOTHING`

// seedSettings writes the discount defaults without clobbering values an
// operator may have tuned.
func seedSettings(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding discount settings")

	defaults := map[string]string{
		settings.KeyHighValueThreshold:       settings.DefaultHighValueThreshold.String(),
		settings.KeyHighValueDiscountPercent: settings.DefaultHighValueDiscountPercent.String(),
		settings.KeyLoyaltyOrderCount:        "3",
		settings.KeyLoyaltyDiscountPercent:   settings.DefaultLoyaltyDiscountPercent.String(),
	}
	for k, v := range defaults {
		if _, err := pool.Exec(ctx, insertSettingSQL, k, v); err != nil {
			return errors.Wrapf(err, "insert setting %s", k)
		}
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	repo := repository.NewCouponRepository(pool)
	expiry := time.Now().AddDate(1, 0, 0)

	coupons := []coupon.Coupon{
		{
			ID:            uuid.NewString(),
			Code:          "WELCOME10",
			Name:          "Welcome: 10% off your first order",
			Type:          coupon.DiscountPercentage,
			Value:         decimal.NewFromInt(10),
			ExpiresAt:     expiry,
			FirstTimeOnly: true,
		},
		{
			ID:          uuid.NewString(),
			Code:        "SHIPFREE",
			Name:        "Free shipping over 200",
			Type:        coupon.DiscountFreeShipping,
			Value:       decimal.Zero,
			ExpiresAt:   expiry,
			MinPurchase: decimal.NewFromInt(200),
		},
	}

	for i := range coupons {
		c := &coupons[i]
		if _, err := repo.FindByCode(ctx, c.Code); err == nil {
			slog.Info("coupon exists, skipping", slog.String("code", c.Code))
			continue
		} else if !errors.Is(err, coupon.ErrNotFound) {
			return errors.Wrapf(err, "check coupon %s", c.Code)
		}

		c.NormalizeExpiry()
		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}

		slog.Info("created coupon", slog.String("code", c.Code), slog.String("name", c.Name))
	}

	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		key_hash = EXCLUDED.key_hash,
		name = EXCLUDED.name,
		scopes = EXCLUDED.scopes,
		active = EXCLUDED.active`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	keyHash := auth.HashKey([]byte(pepper), apiKey)

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"admin", keyHash, "Admin key", []string{"admin"}, true,
	); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "admin"))

	return nil
}
