package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/lk2023060901/imgsync/app/uploader/internal/client"
	"github.com/lk2023060901/imgsync/pkg/app"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/hasher"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/spf13/pflag"
)

type options struct {
	server     string
	token      string
	uid        string
	name       string
	desc       string
	orderID    string
	windowSize string
	algorithm  string
	jobs       int
	hashOnly   bool
	verbose    bool
	version    bool
}

func parseFlags(fs *pflag.FlagSet, args []string) (*options, []string, error) {
	o := &options{}
	fs.StringVar(&o.server, "server", envOr("IMGSYNC_SERVER", "http://localhost:8080"), "imgsync server url")
	fs.StringVar(&o.token, "token", os.Getenv("IMGSYNC_TOKEN"), "bearer token when the server requires auth")
	fs.StringVar(&o.uid, "uid", "", "owner id")
	fs.StringVar(&o.name, "name", "", "display name (defaults to the file name)")
	fs.StringVar(&o.desc, "desc", "", "description")
	fs.StringVar(&o.orderID, "order-id", "", "sort order")
	fs.StringVar(&o.windowSize, "window-size", "2MiB", "hash window size")
	fs.StringVar(&o.algorithm, "algorithm", string(hasher.DefaultAlgorithm), "hash algorithm: "+algorithms())
	fs.IntVarP(&o.jobs, "jobs", "j", 4, "files hashed concurrently")
	fs.BoolVar(&o.hashOnly, "hash-only", false, "print digests without contacting the server")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs.Args(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func algorithms() string {
	var names []string
	for _, alg := range hasher.List() {
		names = append(names, string(alg))
	}
	return strings.Join(names, ", ")
}

func main() {
	fs := pflag.NewFlagSet("uploader", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: uploader --uid U --order-id O [flags] FILE...\n\n")
		fs.PrintDefaults()
	}

	o, paths, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if o.version {
		fmt.Println(app.GetInfo().String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, paths); err != nil {
		fmt.Fprintln(os.Stderr, "uploader:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options, paths []string) error {
	if len(paths) == 0 {
		return errors.New("no files given")
	}
	if !o.hashOnly && (o.uid == "" || o.orderID == "") {
		return errors.New("--uid and --order-id are required")
	}

	window, err := config.ParseByteSize(o.windowSize)
	if err != nil {
		return err
	}
	alg, err := hasher.ParseAlgorithm(o.algorithm)
	if err != nil {
		return err
	}

	level := logger.WarnLevel
	if o.verbose {
		level = logger.DebugLevel
	}
	l, err := logger.New(&logger.Config{Level: level, Format: logger.ConsoleFormat, EnableConsole: true, ConsoleStderr: true})
	if err != nil {
		return err
	}
	defer l.Sync()

	c, err := client.New(&client.Config{
		Server:     o.server,
		Token:      o.token,
		Algorithm:  alg,
		WindowSize: window.Int64(),
		Jobs:       o.jobs,
	}, client.WithLogger(l))
	if err != nil {
		return err
	}

	files, err := c.PrepareAll(ctx, paths)
	if err != nil {
		return err
	}

	if o.hashOnly {
		for _, f := range files {
			fmt.Printf("%s  %s  %s\n", f.Digest.Hex(), humanize.IBytes(uint64(f.Size)), f.Path)
		}
		return nil
	}

	var failed int
	for _, f := range files {
		name := o.name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
		}

		res, err := c.Submit(ctx, f, client.Record{UID: o.uid, Name: name, Desc: o.desc, OrderID: o.orderID})
		if err != nil {
			failed++
			var orphan *client.OrphanError
			if errors.As(err, &orphan) {
				fmt.Fprintf(os.Stderr, "%s: uploaded as %s but not recorded: %v\n", f.Path, orphan.Key, orphan.Err)
				continue
			}
			fmt.Fprintf(os.Stderr, "%s: %v\n", f.Path, err)
			continue
		}

		note := ""
		if res.Upload.Deduplicated {
			note = " (already stored)"
		}
		fmt.Printf("%s  %s  %s%s\n", f.Path, humanize.IBytes(uint64(f.Size)), res.Upload.URL, note)
	}

	if failed > 0 {
		return errors.Newf("%d of %d files failed", failed, len(files))
	}
	return nil
}
