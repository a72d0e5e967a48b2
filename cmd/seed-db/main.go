package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lapkinv/gamesshop/internal/repository"
)

type gameJSON struct {
	Title       string          `json:"title"`
	Genre       string          `json:"genre"`
	Developer   string          `json:"developer"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

const (
	upsertUserSQL = `INSERT INTO users (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, user_id, key_hash, name, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			active = TRUE`

	insertGameSQL = `INSERT INTO products (title, genre, developer, description, price, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)`
)

func main() {
	var (
		databaseURL  string
		gamesFile    string
		userEmail    string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&gamesFile, "games-file", "db/seed/games.json", "path to games catalog JSON file")
	flag.StringVar(&userEmail, "user-email", "demo@gamesshop.local", "email for the seeded demo user")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, gamesFile, userEmail, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, gamesFile, userEmail, apiKey, pepper string) error {
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

	userID, err := seedUser(ctx, pool, userEmail)
	if err != nil {
		return errors.Wrap(err, "seed user")
	}

	if err := seedAPIKey(ctx, pool, userID, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	if err := seedGames(ctx, pool, gamesFile); err != nil {
		return errors.Wrap(err, "seed games")
	}

	return nil
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, email string) (int64, error) {
	slog.Info("seeding demo user", slog.String("email", email))

	var id int64
	if err := pool.QueryRow(ctx, upsertUserSQL, email, "Demo User").Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "upsert user %s", email)
	}
	return id, nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, userID int64, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL, "default", userID, keyHash, "Default test key")
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}

func seedGames(ctx context.Context, pool *pgxpool.Pool, gamesFile string) error {
	slog.Info("reading games file", slog.String("path", gamesFile))

	data, err := os.ReadFile(gamesFile)
	if err != nil {
		return errors.Wrap(err, "read games file")
	}

	var games []gameJSON
	if err := json.Unmarshal(data, &games); err != nil {
		return errors.Wrap(err, "parse games JSON")
	}

	// Seeding is insert-only on purpose: titles are not unique in the
	// catalog, so reruns against a populated database should use
	// catalog-import instead.
	var count int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return errors.Wrap(err, "count products")
	}
	if count > 0 {
		slog.Info("products already present, skipping catalog seed", slog.Int64("count", count))
		return nil
	}

	slog.Info("inserting games", slog.Int("count", len(games)))

	for _, g := range games {
		if _, err := pool.Exec(ctx, insertGameSQL,
			g.Title, g.Genre, g.Developer, g.Description, g.Price,
		); err != nil {
			return errors.Wrapf(err, "insert game %q", g.Title)
		}
		slog.Info("inserted game", slog.String("title", g.Title))
	}

	return nil
}
