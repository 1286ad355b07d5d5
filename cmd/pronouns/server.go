package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/pronouns/internal/api"
	"github.com/kalambet/pronouns/internal/config"
	"github.com/kalambet/pronouns/internal/history"
	"github.com/kalambet/pronouns/internal/macro"
	"github.com/kalambet/pronouns/internal/persist"
	"github.com/kalambet/pronouns/internal/pronoun"
	"github.com/kalambet/pronouns/internal/storage"
)

var serveMCP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pronouns server in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running pronouns server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and the active persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", true, "serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "pronouns.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// backend bundles the persistence target with its optional history store.
type backend struct {
	persist persist.Backend
	history api.History
	pruner  history.Pruner
	close   func() error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client, err := storage.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return nil, err
		}
		return &backend{
			persist: storage.NewRedisBackend(client, cfg.Redis.Prefix),
			close:   client.Close,
		}, nil
	default:
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		return &backend{persist: store, history: store, pruner: store, close: store.Close}, nil
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "pronouns version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Refuse to start twice.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("pronouns is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("pronouns is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.close(); err != nil {
			log.Warn("closing storage", zap.Error(err))
		}
	}()

	mgr := pronoun.NewManager(pronoun.NewMemoryStore(), nil, log)
	if err := persist.Restore(ctx, be.persist, mgr); err != nil {
		return err
	}
	flusher := persist.NewFlusher(mgr, be.persist, cfg.Persist.Delay, log)
	mgr.SetPersister(flusher)
	mgr.SetActive(cfg.Persona.Active)

	registry := macro.NewRegistry()
	target := macro.Target{Name: "persona", Default: true, Current: mgr.Current}
	if err := macro.NewAdapter(registry, log).RegisterPronouns(target); err != nil {
		return fmt.Errorf("registering pronoun macros: %w", err)
	}
	shorthands := macro.NewShorthands(registry, target, pronoun.ShorthandAliases, log)
	if err := shorthands.SetEnabled(cfg.Macros.Shorthands); err != nil {
		return fmt.Errorf("enabling shorthands: %w", err)
	}
	replacer := pronoun.NewReplacer(shorthands.Active)

	appHandler := api.NewAppHandler(api.AppDeps{
		Pronouns:    mgr,
		Replacer:    replacer,
		Macros:      registry,
		Shorthands:  shorthands,
		History:     be.history,
		SaveSetting: config.SetKey,
		Token:       apiToken,
		Log:         log,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     appHandler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		flusher.Run(gctx)
		return nil
	})

	if be.pruner != nil {
		worker := history.NewWorker(be.pruner, cfg.History.Keep, 0, log)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	// A broken watcher only disables live reload.
	g.Go(func() error {
		err := config.Watch(gctx, log, func(c config.Config) {
			if err := shorthands.SetEnabled(c.Macros.Shorthands); err != nil {
				log.Warn("applying shorthand setting", zap.Error(err))
			}
			if c.Persona.Active != mgr.Active() {
				mgr.SetActive(c.Persona.Active)
			}
		})
		if err != nil {
			log.Warn("config watch disabled", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		log.Info("listening", zap.String("addr", addr), zap.String("backend", cfg.Storage.Backend))
		fmt.Fprintf(os.Stderr, "pronouns listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if serveMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Pronouns: mgr,
			Replacer: replacer,
			Macros:   registry,
			Log:      log,
		})
		g.Go(func() error {
			err := server.NewStdioServer(mcpSrv).Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("MCP stdio server error", zap.Error(err))
			}
			return nil
		})
		log.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("pronouns is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop pronouns (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to pronouns (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		printStatus("Server", "unknown (%v)", err)
		return nil
	}
	client.httpClient.Timeout = 2 * time.Second

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}
	printStatus("Storage", "%s", cfg.Storage.Backend)

	if err == nil && resp.StatusCode == http.StatusOK {
		if settingsResp, err := client.get(ctx, "/settings"); err == nil {
			var s api.Settings
			if decodeJSON(settingsResp, &s) == nil {
				active := s.ActivePersona
				if active == "" {
					active = "(none)"
				}
				printStatus("Active persona", "%s", active)
				printStatus("Shorthands", "%s", onOff(s.Shorthands, len(s.LiveShorthands)))
			}
		}
		if histResp, err := client.get(ctx, "/replacements?limit=100"); err == nil {
			var entries []api.HistoryEntry
			if decodeJSON(histResp, &entries) == nil {
				printStatus("Replacements", "%s", countLabel(len(entries), 100))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func onOff(on bool, live int) string {
	if !on {
		return "off"
	}
	return fmt.Sprintf("on (%d live)", live)
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
