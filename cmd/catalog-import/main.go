// Command catalog-import loads game catalog dumps into the products table.
//
// Dumps are JSON-lines files, one game per line, optionally gzip
// compressed. Distributors ship overlapping dumps, so the importer
// de-duplicates across all input files: a bloom filter screens every
// (title, developer) pair cheaply, and only bloom positives pay for a
// database existence check.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lapkinv/gamesshop/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

type gameRecord struct {
	Title       string          `json:"title"`
	Genre       string          `json:"genre"`
	Developer   string          `json:"developer"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

const (
	insertGameSQL = `INSERT INTO products (title, genre, developer, description, price, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)`

	gameExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM products WHERE title = $1 AND developer = $2
	)`

	existingGamesSQL = `SELECT title, developer FROM products`
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no dump files given: catalog-import [flags] dump1.jsonl[.gz] ...")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: parse all dump files concurrently.
	slog.Info("parsing dump files", slog.Int("files", len(files)))

	parsed := make([][]gameRecord, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFile(gctx, i, f, parsed))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parse dumps")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 2: single writer inserts records, skipping duplicates seen in
	// this run or already present in the database.
	return writeGames(ctx, pool, parsed)
}

func parseFile(ctx context.Context, idx int, path string, out [][]gameRecord) func() error {
	return func() error {
		var (
			records []gameRecord
			count   uint64
		)

		if err := streamLines(ctx, path, func(line string) error {
			var rec gameRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return errors.Wrapf(err, "line %d", count+1)
			}
			if rec.Title == "" || rec.Price.IsNegative() {
				return errors.Errorf("line %d: missing title or negative price", count+1)
			}

			records = append(records, rec)
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.Int("file", idx+1), slog.Uint64("records", count))
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse file %d", idx+1)
		}

		slog.Info("parse complete", slog.Int("file", idx+1), slog.Uint64("records", count))

		out[idx] = records
		return nil
	}
}

// streamLines opens a dump file, transparently decompressing .gz, and calls
// fn for each non-empty line.
func streamLines(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func writeGames(ctx context.Context, pool *pgxpool.Pool, parsed [][]gameRecord) error {
	seen, err := loadExisting(ctx, pool)
	if err != nil {
		return err
	}

	var inserted, skipped int
	for _, records := range parsed {
		for _, rec := range records {
			key := dedupeKey(rec.Title, rec.Developer)

			// A bloom miss is definitive: the game is in neither the
			// database nor an earlier dump line, so it inserts without a
			// round trip. A hit may be false, so it escalates to an exact
			// existence check.
			if seen.TestString(key) {
				exists, err := gameExists(ctx, pool, rec)
				if err != nil {
					return err
				}
				if exists {
					skipped++
					continue
				}
			}

			if _, err := pool.Exec(ctx, insertGameSQL,
				rec.Title, rec.Genre, rec.Developer, rec.Description, rec.Price,
			); err != nil {
				return errors.Wrapf(err, "insert game %q", rec.Title)
			}
			seen.AddString(key)
			inserted++

			if inserted%progressEvery == 0 {
				slog.Info("write progress", slog.Int("inserted", inserted), slog.Int("skipped", skipped))
			}
		}
	}

	slog.Info("write complete", slog.Int("inserted", inserted), slog.Int("skipped", skipped))
	return nil
}

func dedupeKey(title, developer string) string {
	return title + "\x00" + developer
}

// loadExisting seeds the bloom filter with every game already in the
// catalog, so re-running the importer with the same dumps is a no-op.
func loadExisting(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	rows, err := pool.Query(ctx, existingGamesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query existing games")
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var title, developer string
		if err := rows.Scan(&title, &developer); err != nil {
			return nil, errors.Wrap(err, "scan existing game")
		}
		seen.AddString(dedupeKey(title, developer))
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate existing games")
	}

	slog.Info("loaded existing catalog", slog.Int("games", count))
	return seen, nil
}

func gameExists(ctx context.Context, pool *pgxpool.Pool, rec gameRecord) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, gameExistsSQL, rec.Title, rec.Developer).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "check game %q", rec.Title)
	}
	return exists, nil
}
