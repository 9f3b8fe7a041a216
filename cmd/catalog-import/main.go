// Command catalog-import loads supplier product feeds into the catalog. A
// feed is a gzip-compressed JSON-lines file, one product object per line;
// feeds from several suppliers routinely repeat the same products.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	writeWorkers  = 4
	progressEvery = 50_000
)

const upsertProductSQL = `INSERT INTO products (title, description, price, stock, image)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (title) DO UPDATE
	SET description = EXCLUDED.description, price = EXCLUDED.price,
	    stock = EXCLUDED.stock, image = EXCLUDED.image`

type feedProduct struct {
	title       string
	description string
	price       decimal.Decimal
	stock       int
	image       string
}

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
		slog.Error("no feed files given: pass one or more .jsonl.gz paths")
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
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Duplicate suppression across feeds. A false positive drops a product
	// that was never imported, but upserts are idempotent and feeds repeat
	// across suppliers, so the next run picks it up.
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	products := make(chan feedProduct, writeWorkers*16)

	g, ctx := errgroup.WithContext(ctx)
	for range writeWorkers {
		g.Go(func() error {
			for p := range products {
				if _, err := pool.Exec(ctx, upsertProductSQL,
					p.title, p.description, p.price, p.stock, p.image,
				); err != nil {
					return errors.Wrapf(err, "upsert product %q", p.title)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(products)

		var total, dupes uint64
		for _, path := range files {
			slog.Info("importing feed", slog.String("path", path))

			if err := streamFeed(ctx, path, func(p feedProduct) error {
				total++
				if total%progressEvery == 0 {
					slog.Info("import progress",
						slog.Uint64("products", total), slog.Uint64("duplicates", dupes))
				}
				if seen.TestOrAddString(p.title) {
					dupes++
					return nil
				}
				select {
				case products <- p:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}); err != nil {
				return errors.Wrapf(err, "import %s", path)
			}
		}

		slog.Info("feeds read", slog.Uint64("products", total), slog.Uint64("duplicates", dupes))
		return nil
	})

	return g.Wait()
}

// streamFeed decompresses a feed and calls fn for every product line.
func streamFeed(ctx context.Context, path string, fn func(feedProduct) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		p, err := parseLine(line)
		if err != nil {
			return errors.Wrap(err, "parse feed line")
		}
		if p.title == "" {
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

// parseLine decodes one JSON feed line without allocating an intermediate
// map.
func parseLine(line []byte) (feedProduct, error) {
	var p feedProduct
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "title":
			v, err := d.Str()
			p.title = v
			return err
		case "description":
			v, err := d.Str()
			p.description = v
			return err
		case "price":
			// Feeds disagree on whether price is a number or a string.
			n, err := d.Num()
			if err != nil {
				return err
			}
			p.price, err = decimal.NewFromString(strings.Trim(n.String(), `"`))
			return err
		case "stock":
			v, err := d.Int()
			p.stock = v
			return err
		case "image":
			v, err := d.Str()
			p.image = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return p, err
	}
	if p.stock < 0 {
		p.stock = 0
	}
	return p, nil
}
