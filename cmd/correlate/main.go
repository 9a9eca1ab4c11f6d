// Command correlate finishes one source payload offline: it runs the payload
// through the named source adapter and the correlation engine, writes the
// finished records as JSON lines, and reports every rejected record.
//
// Usage:
//
//	go run ./cmd/correlate -source gdacs -in event.geojson > finished.jsonl
//	go run ./cmd/correlate -source emdat -in emdat.json -errors rejected.jsonl
//
// Exit status is 0 when every record was finished, 2 when some records were
// rejected, and 1 on fatal errors (bad flags, unreadable input, taxonomy
// build failure, undecodable payload).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/engine"
	"github.com/couchcryptid/disaster-correlation-etl/internal/schema"
	"github.com/couchcryptid/disaster-correlation-etl/internal/source"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

const (
	exitOK       = 0
	exitFatal    = 1
	exitRejected = 2
)

type options struct {
	source       string
	in           string
	out          string
	errorsPath   string
	taxonomyPath string
	sourceTag    string
	allowPartial bool
	validate     bool
	workers      int
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: read .env: %v\n", err)
	}
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("correlate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.source, "source", os.Getenv("DEFAULT_SOURCE"), "source adapter name (gdacs, glide, emdat)")
	fs.StringVar(&o.in, "in", "-", "source payload file, - for stdin")
	fs.StringVar(&o.out, "out", "-", "finished records output (JSON lines), - for stdout")
	fs.StringVar(&o.errorsPath, "errors", "", "rejected records output (JSON lines), default stderr")
	fs.StringVar(&o.taxonomyPath, "taxonomy", os.Getenv("TAXONOMY_PATH"), "hazard taxonomy CSV overriding the embedded dataset")
	fs.StringVar(&o.sourceTag, "tag", domain.DefaultSourceTag, "correlation key source tag")
	fs.BoolVar(&o.allowPartial, "allow-partial", false, "emit records whose correlation key cannot be built")
	fs.BoolVar(&o.validate, "validate", true, "validate finished records against the record schema")
	fs.IntVar(&o.workers, "workers", 4, "records finished concurrently (1-64)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.source == "" {
		fs.Usage()
		return options{}, errors.New("-source is required")
	}
	if !domain.ValidSourceTag(o.sourceTag) {
		return options{}, fmt.Errorf("invalid -tag %q", o.sourceTag)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFatal
	}

	runID := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("run_id", runID, "source", opts.source)

	res, err := correlate(ctx, opts, stdin, stdout, stderr)
	if err != nil {
		logger.Error("correlation failed", "error", err)
		return exitFatal
	}

	logger.Info("correlation finished",
		"finished", res.finished,
		"partial", res.partial,
		"rejected", res.rejected,
	)
	if res.rejected > 0 {
		return exitRejected
	}
	return exitOK
}

type summary struct {
	finished int
	partial  int
	rejected int
}

func correlate(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) (summary, error) {
	table, err := loadTaxonomy(opts.taxonomyPath)
	if err != nil {
		return summary{}, err
	}
	registry, err := source.NewDefaultRegistry(table)
	if err != nil {
		return summary{}, err
	}
	adapter, err := registry.Lookup(opts.source)
	if err != nil {
		return summary{}, err
	}

	payload, err := readInput(opts.in, stdin)
	if err != nil {
		return summary{}, err
	}
	drafts, err := adapter.ProduceRecords(payload)
	if err != nil {
		return summary{}, err
	}

	eng := engine.New(table,
		engine.WithSourceTag(opts.sourceTag),
		engine.WithAllowPartial(opts.allowPartial),
		engine.WithWorkers(opts.workers),
	)
	res, err := eng.FinishAll(ctx, drafts)
	if err != nil {
		return summary{}, err
	}

	var validator *schema.Validator
	if opts.validate {
		if validator, err = schema.NewValidator(); err != nil {
			return summary{}, err
		}
	}

	out, closeOut, err := openOutput(opts.out, stdout)
	if err != nil {
		return summary{}, err
	}
	defer closeOut()
	errOut, closeErr, err := openOutput(opts.errorsPath, stderr)
	if err != nil {
		return summary{}, err
	}
	defer closeErr()

	outBuf := bufio.NewWriter(out)
	errBuf := bufio.NewWriter(errOut)

	var sum summary
	failures := res.Errors
	for i, rec := range res.Finished {
		if validator != nil {
			if err := validator.Validate(rec); err != nil {
				failures = append(failures, &domain.RecordError{Index: res.FinishedIndex[i], RecordID: rec.ID, Err: err})
				continue
			}
		}
		ev, err := domain.SerializeFinishedRecord(rec)
		if err != nil {
			return summary{}, err
		}
		if err := writeLine(outBuf, ev.Value); err != nil {
			return summary{}, err
		}
		sum.finished++
	}

	now := time.Now()
	for _, recErr := range failures {
		if recErr.Partial {
			sum.partial++
			continue
		}
		draft, _ := json.Marshal(drafts[recErr.Index])
		ev, err := domain.SerializeRejection(recErr, adapter.Name(), draft, now)
		if err != nil {
			return summary{}, err
		}
		if err := writeLine(errBuf, ev.Value); err != nil {
			return summary{}, err
		}
		sum.rejected++
	}

	if err := outBuf.Flush(); err != nil {
		return summary{}, fmt.Errorf("write finished records: %w", err)
	}
	if err := errBuf.Flush(); err != nil {
		return summary{}, fmt.Errorf("write rejected records: %w", err)
	}
	return sum, nil
}

func loadTaxonomy(path string) (*taxonomy.Table, error) {
	if path != "" {
		return taxonomy.LoadFile(path)
	}
	return taxonomy.Default()
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return fallback, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeLine(w *bufio.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
