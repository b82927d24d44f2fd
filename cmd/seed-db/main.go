// Command seed-db populates a development database with a small catalog,
// tax rules, discounts and a test customer with a known session token.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/repository"
)

func main() {
	var (
		databaseURL   string
		sessionToken  string
		sessionPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&sessionToken, "session-token", "", "session token to seed (or CHECKOUT_SEED_TOKEN env)")
	flag.StringVar(&sessionPepper, "session-pepper", "", "HMAC pepper for token hashing (or CHECKOUT_SESSION_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if sessionToken == "" {
		sessionToken = os.Getenv("CHECKOUT_SEED_TOKEN")
	}
	if sessionToken == "" {
		slog.Error("session token is required: set --session-token or CHECKOUT_SEED_TOKEN")
		os.Exit(1)
	}
	if sessionPepper == "" {
		sessionPepper = os.Getenv("CHECKOUT_SESSION_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, sessionToken, sessionPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, token, pepper string) error {
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

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedTaxes(ctx, pool); err != nil {
		return errors.Wrap(err, "seed taxes")
	}
	if err := seedDiscounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := seedCustomer(ctx, pool, token, pepper); err != nil {
		return errors.Wrap(err, "seed customer")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding catalog")

	_, err := pool.Exec(ctx, `
		INSERT INTO product (id, name, model, price, tax_class_id, points, minimum, stock, shipping, status)
		VALUES
			(1, 'Espresso Blend 250g', 'COF-ESP-250', 14.50, 1, 10, 1, 120, TRUE, TRUE),
			(2, 'Pour Over Kit', 'KIT-V60', 39.00, 1, 30, 1, 25, TRUE, TRUE),
			(3, 'Brewing Masterclass (video)', 'VID-BREW', 19.00, 0, 0, 1, 9999, FALSE, TRUE)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "products")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO product_option (id, product_id, name, type, required, sort_order)
		VALUES
			(1, 1, 'Grind', 'select', TRUE, 1),
			(2, 1, 'Gift note', 'text', FALSE, 2)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "options")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO product_option_value (id, product_option_id, name, price, price_prefix, points, points_prefix, sort_order)
		VALUES
			(1, 1, 'Whole bean', 0, '+', 0, '+', 1),
			(2, 1, 'Filter grind', 1.00, '+', 0, '+', 2),
			(3, 1, 'Espresso grind', 1.00, '+', 0, '+', 3)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "option values")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO subscription_plan (id, name, duration, cycle, frequency, status)
		VALUES (1, 'Monthly delivery', 12, 1, 'month', TRUE)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "subscription plans")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO product_special (product_id, customer_group_id, price, priority, date_start, date_end)
		SELECT 2, 0, 34.00, 1, NOW() - INTERVAL '1 day', NOW() + INTERVAL '30 days'
		WHERE NOT EXISTS (SELECT 1 FROM product_special WHERE product_id = 2)`)
	return errors.Wrap(err, "specials")
}

func seedTaxes(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding taxes")

	_, err := pool.Exec(ctx, `
		INSERT INTO tax_rate (id, name, rate, type)
		VALUES (1, 'VAT 10%', 10.0, 'P')
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "tax rates")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO tax_rule (tax_class_id, tax_rate_id, priority)
		SELECT 1, 1, 1
		WHERE NOT EXISTS (SELECT 1 FROM tax_rule WHERE tax_class_id = 1 AND tax_rate_id = 1)`)
	return errors.Wrap(err, "tax rules")
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding discounts")

	_, err := pool.Exec(ctx, `
		INSERT INTO coupon (code, name, type, discount, status, date_start, date_end, uses_total)
		VALUES
			('WELCOME10', 'Welcome: 10% off', 'P', 10.0, TRUE, NOW() - INTERVAL '1 day', NOW() + INTERVAL '365 days', 0),
			('FIVER', 'Five off', 'F', 5.0, TRUE, NULL, NULL, 100)
		ON CONFLICT (code) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "coupons")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO voucher (code, amount, status)
		VALUES ('GIFT-50', 50.00, TRUE)
		ON CONFLICT (code) DO NOTHING`)
	return errors.Wrap(err, "vouchers")
}

func seedCustomer(ctx context.Context, pool *pgxpool.Pool, token, pepper string) error {
	slog.Info("seeding test customer")

	_, err := pool.Exec(ctx, `
		INSERT INTO customer (id, email, customer_group_id, status)
		VALUES (1, 'test@example.com', 0, TRUE)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return errors.Wrap(err, "customer")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO customer_reward (customer_id, points, description)
		SELECT 1, 500, 'welcome bonus'
		WHERE NOT EXISTS (SELECT 1 FROM customer_reward WHERE customer_id = 1)`)
	if err != nil {
		return errors.Wrap(err, "rewards")
	}

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	tokenHash := hex.EncodeToString(mac.Sum(nil))

	_, err = pool.Exec(ctx, `
		INSERT INTO customer_session (customer_id, token_hash)
		VALUES (1, $1)
		ON CONFLICT (token_hash) DO NOTHING`, tokenHash)
	if err != nil {
		return errors.Wrap(err, "session")
	}

	slog.Info("seeded session", slog.String("customer", "test@example.com"))
	return nil
}
