package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"genadapter/config"
	"genadapter/metrics"
	"genadapter/provider"
	"genadapter/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

const usage = `genadapter %s

Usage:
  genadapter text    [-source s] [-model m] [-budget n] <prompt>
  genadapter vision  [-source s] [-model m] [-budget n] -image <ref> <prompt>
  genadapter batch   [-source s] [-model m] [-budget n] [-j n] -prompt <p> <image>...
  genadapter ping    [-source s] [-model m]
  genadapter history [-n count]
  genadapter key     set|delete <source> [api-key]
  genadapter use     -source s [-model m]
  genadapter sources

Image refs may be local paths, https URLs or data URIs.
Set GENADAPTER_DEBUG=1 to write <data_dir>/debug.log.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, Version)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, provider.ErrConfiguration), errors.Is(err, provider.ErrCredential):
		return 3
	default:
		return 1
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "sources":
		return listSources(out)
	case "-h", "--help", "help":
		fmt.Fprintf(out, usage, Version)
		return nil
	case "-v", "--version", "version":
		fmt.Fprintf(out, "genadapter %s (%s)\n", Version, License)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	switch cmd {
	case "text":
		return runText(ctx, cfg, args, out)
	case "vision":
		return runVision(ctx, cfg, args, out)
	case "batch":
		return runBatch(ctx, cfg, args, out)
	case "ping":
		return runPing(ctx, cfg, args, out)
	case "history":
		return runHistory(ctx, cfg, args, out)
	case "key":
		return runKey(cfg, args, out)
	case "use":
		return runUse(cfg, args, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// generationFlags are shared by every command that builds a provider.
type generationFlags struct {
	source string
	model  string
	budget int
}

func (g *generationFlags) register(fs *flag.FlagSet, cfg *config.Config, defaultBudget int) {
	fs.StringVar(&g.source, "source", cfg.Source(), "model source, see the sources command")
	fs.StringVar(&g.model, "model", "", "model name (default: configured model, or the source default)")
	fs.IntVar(&g.budget, "budget", defaultBudget, "thinking budget hint")
}

// apply copies flag overrides into cfg. A source override without a model
// override drops the configured model so the source's default is used.
func (g *generationFlags) apply(cfg *config.Config) {
	if g.source != cfg.DefaultSource {
		cfg.DefaultSource = g.source
		cfg.DefaultModel = ""
	}
	if g.model != "" {
		cfg.DefaultModel = g.model
	}
}

// newProvider builds a provider from cfg, attaching the history store when
// history is enabled and the metrics endpoint when one is configured. The
// returned close func releases both.
func newProvider(cfg *config.Config) (*provider.GenerationProvider, func(), error) {
	var recorders provider.MultiRecorder
	var closers []func()
	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.HistoryEnabled {
		history, err := storage.NewHistoryStore(cfg.DataDir())
		if err != nil {
			// history is best effort
			if config.DebugLog != nil {
				config.DebugLog.Printf("Warning: failed to open history store: %v", err)
			}
		} else {
			recorders = append(recorders, history)
			closers = append(closers, func() {
				if err := history.Close(); err != nil && config.DebugLog != nil {
					config.DebugLog.Printf("Warning: failed to close history store: %v", err)
				}
			})
		}
	}

	if cfg.MetricsAddr != "" {
		prom, _, stop, err := serveMetrics(cfg.MetricsAddr)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("Warning: metrics endpoint disabled: %v", err)
			}
		} else {
			recorders = append(recorders, prom)
			closers = append(closers, stop)
		}
	}

	var opts []provider.Option
	if len(recorders) > 0 {
		opts = append(opts, provider.WithRecorder(recorders))
	}

	p, err := provider.NewFromConfig(cfg, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}

// serveMetrics registers the generation collectors on a fresh registry and
// serves it at addr under /metrics. It returns the bound address.
func serveMetrics(addr string) (*metrics.Prom, string, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := metrics.NewProm(reg)
	if err != nil {
		return nil, "", nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && config.DebugLog != nil {
			config.DebugLog.Printf("metrics server error: %v", err)
		}
	}()
	if config.DebugLog != nil {
		config.DebugLog.Printf("metrics on http://%s/metrics", ln.Addr())
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return prom, ln.Addr().String(), stop, nil
}

func runText(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("text", flag.ContinueOnError)
	var g generationFlags
	g.register(fs, cfg, cfg.TextThinkingBudget)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		return fmt.Errorf("%w: text requires a prompt", errUsage)
	}
	g.apply(cfg)

	p, closeFn, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := p.GenerateText(ctx, prompt, provider.WithThinkingBudget(g.budget))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resp)
	return nil
}

func runVision(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("vision", flag.ContinueOnError)
	var g generationFlags
	g.register(fs, cfg, cfg.VisionThinkingBudget)
	image := fs.String("image", "", "image path, https URL or data URI")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" || *image == "" {
		return fmt.Errorf("%w: vision requires -image and a prompt", errUsage)
	}
	g.apply(cfg)

	p, closeFn, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := p.GenerateWithImage(ctx, prompt, *image, provider.WithThinkingBudget(g.budget))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resp)
	return nil
}

// runBatch describes several images with one prompt. All workers share one
// provider, so the vision client is built once no matter how many images
// race for it.
func runBatch(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	var g generationFlags
	g.register(fs, cfg, cfg.VisionThinkingBudget)
	prompt := fs.String("prompt", "", "prompt sent with every image")
	jobs := fs.Int("j", 4, "concurrent requests")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	images := fs.Args()
	if *prompt == "" || len(images) == 0 {
		return fmt.Errorf("%w: batch requires -prompt and at least one image", errUsage)
	}
	g.apply(cfg)

	p, closeFn, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	results := make([]string, len(images))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(*jobs, 1))
	for i, ref := range images {
		eg.Go(func() error {
			resp, err := p.GenerateWithImage(egCtx, *prompt, ref, provider.WithThinkingBudget(g.budget))
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
			results[i] = resp
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, ref := range images {
		fmt.Fprintf(out, "== %s\n%s\n", ref, results[i])
	}
	if config.DebugLog != nil {
		stats := p.Stats()[provider.ModalityVision]
		config.DebugLog.Printf("[Batch] %d images, vision client %s after %d construction attempt(s)", len(images), stats.State, stats.Attempts)
	}
	return nil
}

func runPing(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	var g generationFlags
	g.register(fs, cfg, 0)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	g.apply(cfg)

	p, closeFn, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := p.Ping(ctx); err != nil {
		return err
	}
	id := p.Identity()
	fmt.Fprintf(out, "%s/%s: ok\n", id.Source, id.Model)
	return nil
}

func runHistory(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	n := fs.Int("n", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	history, err := storage.NewHistoryStore(cfg.DataDir())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	entries, err := history.Recent(ctx, *n)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSOURCE\tMODEL\tMODALITY\tBUDGET\tMS\tSTATUS")
	for _, e := range entries {
		status := "ok"
		if !e.Succeeded() {
			status = "error: " + e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Source, e.Model,
			provider.Modality(e.Modality), e.ThinkingBudget, e.DurationMS, status)
	}
	return w.Flush()
}

func runKey(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: key set <source> <api-key> | key delete <source>", errUsage)
	}
	store := cfg.CredentialStore
	source := args[1]

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("%w: key set <source> <api-key>", errUsage)
		}
		if !provider.SourceRequiresKey(source) {
			fmt.Fprintf(out, "note: %s does not need an API key\n", source)
		}
		if err := store.Set(source, args[2]); err != nil {
			return err
		}
	case "delete":
		if err := store.Delete(source); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown key action %q", errUsage, args[0])
	}

	if err := store.Save(cfg.DataDir()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	fmt.Fprintf(out, "credentials updated (%s)\n", store.GetMethod())
	return nil
}

func runUse(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("use", flag.ContinueOnError)
	source := fs.String("source", "", "default source")
	model := fs.String("model", "", "default model")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *source == "" {
		return fmt.Errorf("%w: use requires -source", errUsage)
	}
	info, ok := provider.LookupSource(*source)
	if !ok {
		return fmt.Errorf("%w: unknown source %q", provider.ErrConfiguration, *source)
	}
	if *model == "" {
		*model = info.DefaultModel
	}

	userCfg, err := config.LoadUserConfig(cfg.DataDir())
	if err != nil {
		return err
	}
	userCfg.Generation.DefaultSource = info.Name
	userCfg.Generation.DefaultModel = *model
	if err := config.SaveUserConfig(userCfg, cfg.DataDir()); err != nil {
		return err
	}
	fmt.Fprintf(out, "default set to %s/%s\n", info.Name, *model)
	return nil
}

func listSources(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tBACKEND\tDEFAULT MODEL\tKEY")
	for _, name := range provider.Sources() {
		info, _ := provider.LookupSource(name)
		key := "required"
		if !info.RequiresKey {
			key = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, info.Kind, info.DefaultModel, key)
	}
	return w.Flush()
}
