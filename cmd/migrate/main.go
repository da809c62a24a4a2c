// migrate loads patient CSV files into MongoDB, exports them back and checks
// that both sides agree.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/medmigrate/internal/migrate"
	"github.com/aussiebroadwan/medmigrate/pkg/mongox"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	csvPath   string
	outPath   string
	filter    string
	set       string
	many      bool
	batchSize int
	drop      bool
}

func run(args []string, stdout io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg := migrate.LoadConfig()

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return pflag.ErrHelp
	}
	command := args[0]
	if !knownCommands[command] {
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}

	opts := options{
		csvPath:   cfg.CSVPath,
		outPath:   cfg.ExportPath,
		batchSize: cfg.BatchSize,
	}

	flagSet := pflag.NewFlagSet("migrate "+command, pflag.ContinueOnError)
	flagSet.StringVar(&opts.csvPath, "csv", opts.csvPath, "source CSV file (env CSV_PATH)")
	flagSet.StringVar(&opts.outPath, "out", opts.outPath, "export target file, - for stdout (env EXPORT_PATH)")
	flagSet.StringVar(&opts.filter, "filter", "", "Extended JSON filter, e.g. '{\"Name\": \"Luis\"}'")
	flagSet.StringVar(&opts.set, "set", "", "Extended JSON update, e.g. '{\"$set\": {\"Test Results\": \"Normal\"}}'")
	flagSet.BoolVar(&opts.many, "many", false, "update or delete every match instead of the first")
	flagSet.IntVar(&opts.batchSize, "batch-size", opts.batchSize, "documents per insert")
	flagSet.BoolVar(&opts.drop, "drop", false, "drop the collection before importing")
	if err := flagSet.Parse(args[1:]); err != nil {
		return err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected argument: %s", extra[0])
	}

	logger := slogx.New(slogx.Config{
		Service: "migrate",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = slogx.WithContext(ctx, logger)

	client, err := mongox.Connect(ctx, cfg.MongoURI, cfg.ConnectTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	loader := &migrate.Loader{
		Coll:      migrate.NewMongoCollection(client.Database(cfg.MongoDB).Collection(cfg.Collection)),
		BatchSize: opts.batchSize,
	}
	c := &commands{loader: loader, opts: opts, stdout: stdout}

	switch command {
	case "import":
		return c.importCSV(ctx)
	case "export":
		return c.export(ctx)
	case "verify":
		return c.verify(ctx)
	case "find":
		return c.find(ctx)
	case "update":
		return c.update(ctx)
	case "delete":
		return c.delete(ctx)
	default: // pipeline
		if err := c.importCSV(ctx); err != nil {
			return err
		}
		if err := c.verify(ctx); err != nil {
			return err
		}
		return c.export(ctx)
	}
}

var knownCommands = map[string]bool{
	"import": true, "export": true, "verify": true, "find": true,
	"update": true, "delete": true, "pipeline": true,
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `migrate moves patient records between CSV and MongoDB.

Usage:
  migrate <command> [flags]

Commands:
  import    load --csv into the collection (--batch-size, --drop)
  export    write the collection to --out
  verify    compare --csv with the collection
  find      print documents matching --filter
  update    apply --set to the first match of --filter (--many for all)
  delete    delete the first match of --filter (--many for all)
  pipeline  import, verify, then export

Connection settings come from MONGO_URI, MONGO_DB and MONGO_COLLECTION,
optionally loaded from a .env file.
`)
}
