// Command voucher-ingest bulk-loads gift voucher codes from gzip-compressed
// CSV exports. Each line is "CODE,AMOUNT". Files are streamed concurrently,
// codes already present in the database are skipped via a bloom prefilter,
// and the remainder is inserted in batches.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-checkout/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 6
	maxCodeLen    = 32
	insertBatch   = 1000
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing voucher export .gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("voucher ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("voucher ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	filter, err := buildExistingFilter(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "build existing-codes filter")
	}

	vouchers, err := collectVouchers(ctx, files, filter)
	if err != nil {
		return errors.Wrap(err, "collect vouchers")
	}

	slog.Info("new vouchers found", slog.Int("count", len(vouchers)))

	if len(vouchers) == 0 {
		return nil
	}

	return writeVouchers(ctx, pool, vouchers)
}

// buildExistingFilter loads all voucher codes already in the database into
// a bloom filter. A positive test means the code is probably present; those
// codes are skipped. False positives lose a tiny fraction of new codes,
// which a rerun with a fresh filter picks up.
func buildExistingFilter(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	rows, err := pool.Query(ctx, `SELECT code FROM voucher`)
	if err != nil {
		return nil, errors.Wrap(err, "query voucher codes")
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, "scan voucher code")
		}
		filter.AddString(strings.ToUpper(code))
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate voucher codes")
	}

	slog.Info("existing codes loaded", slog.Int("count", count))
	return filter, nil
}

// collectVouchers streams all files concurrently and merges parsed rows,
// keeping the first amount seen for a code duplicated across files.
func collectVouchers(ctx context.Context, files []string, filter *bloom.BloomFilter) (map[string]decimal.Decimal, error) {
	var (
		mu     sync.Mutex
		merged = make(map[string]decimal.Decimal)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			found, err := parseFile(ctx, f, filter)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}

			mu.Lock()
			for code, amount := range found {
				if _, ok := merged[code]; !ok {
					merged[code] = amount
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

func parseFile(ctx context.Context, path string, filter *bloom.BloomFilter) (map[string]decimal.Decimal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	found := make(map[string]decimal.Decimal)
	var count uint64

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		count++
		if count%progressEvery == 0 {
			slog.Info("parse progress", slog.String("file", path), slog.Uint64("lines", count))
		}

		code, amount, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if filter.TestString(code) {
			continue
		}
		found[code] = amount
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	slog.Info("parse complete",
		slog.String("file", path),
		slog.Uint64("lines", count),
		slog.Int("new", len(found)),
	)
	return found, nil
}

// parseLine parses a "CODE,AMOUNT" line. Malformed lines, codes outside
// the accepted length range and non-positive amounts are rejected.
func parseLine(line string) (string, decimal.Decimal, bool) {
	code, rawAmount, ok := strings.Cut(strings.TrimSpace(line), ",")
	if !ok {
		return "", decimal.Decimal{}, false
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return "", decimal.Decimal{}, false
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil || !amount.IsPositive() {
		return "", decimal.Decimal{}, false
	}

	return code, amount, true
}

// writeVouchers inserts the new codes in batches. ON CONFLICT DO NOTHING
// covers codes the bloom prefilter missed.
func writeVouchers(ctx context.Context, pool *pgxpool.Pool, vouchers map[string]decimal.Decimal) error {
	slog.Info("writing vouchers to database", slog.Int("count", len(vouchers)))

	const insertSQL = `INSERT INTO voucher (code, amount, status)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (code) DO NOTHING`

	batch := &pgx.Batch{}
	var written int
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "send batch")
		}
		written += batch.Len()
		slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(vouchers)))
		batch = &pgx.Batch{}
		return nil
	}

	for code, amount := range vouchers {
		batch.Queue(insertSQL, code, amount)
		if batch.Len() >= insertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
