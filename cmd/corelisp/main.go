// Command corelisp drives the read/analyze/codegen/JIT pipeline from the
// shell: one-shot eval, AOT compile, an interactive REPL, the remote
// compile server, and the nREPL engine.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/oxhq/corelisp/internal/abi"
	"github.com/oxhq/corelisp/internal/analyzer"
	"github.com/oxhq/corelisp/internal/cache"
	"github.com/oxhq/corelisp/internal/codegen"
	"github.com/oxhq/corelisp/internal/config"
	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/logging"
	"github.com/oxhq/corelisp/internal/nrepl"
	"github.com/oxhq/corelisp/internal/reader"
	"github.com/oxhq/corelisp/internal/remote"
	"github.com/oxhq/corelisp/internal/runtime"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.LevelInfo)

	rootCmd := &cobra.Command{
		Use:   "corelisp",
		Short: "corelisp drives the read/analyze/codegen/JIT pipeline",
	}

	var namespace string
	rootCmd.PersistentFlags().StringVar(&namespace, "ns", "user", "namespace to evaluate/compile against")

	rootCmd.AddCommand(
		newEvalCmd(cfg, &namespace),
		newCompileCmd(cfg, &namespace),
		newReplCmd(cfg, &namespace),
		newServeCmd(cfg, logger),
		newNreplCmd(cfg, logger),
	)

	if err := rootCmd.ExecuteContext(signalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT/SIGTERM, so long-running
// subcommands (serve, nrepl) shut their listeners down cleanly instead of
// the process dying mid-accept.
func signalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	_ = stop
	return ctx
}

func newRuntimeContext(cfg *config.Config) (*runtime.Context, error) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	ctx.Loader = runtime.NewLoader(cfg.SearchPaths)
	ctx.SetCompileFiles(cfg.CompileFiles)

	if cfg.CacheDir != "" {
		var keyring *cache.Keyring
		if cfg.CacheMasterKey != "" {
			var err error
			keyring, err = cache.OpenKeyring(
				filepath.Join(cfg.CacheDir, "keyring.json"),
				[]byte(cfg.CacheMasterKey),
				cache.Algorithm(cfg.CacheEncryptionAlgo),
			)
			if err != nil {
				return nil, fmt.Errorf("opening cache keyring: %w", err)
			}
		}
		objCache, err := cache.Open(cfg.CacheDir, keyring)
		if err != nil {
			return nil, fmt.Errorf("opening persistent cache: %w", err)
		}
		ctx.AttachCache(objCache)
	}

	return ctx, nil
}

// generateAndCompile folds one or more forms read from src into a single
// codegen unit (analyzing earlier defs before later forms need them,
// since TargetEval expects exactly one self-contained expression) the
// same way internal/remote and internal/nrepl's eval paths do. The
// returned cacheKey is the key the caller should pass to
// runtime.Context.CompileCached for this unit (analyzer.CacheKey).
func generateAndCompile(ctx context.Context, rctx *runtime.Context, ns, src string, target codegen.Target) (codegen.Output, string, error) {
	namespace := rctx.Namespaces.GetOrCreate(ns)
	forms, err := reader.New([]byte(src), ns).ReadAll()
	if err != nil {
		return codegen.Output{}, "", fmt.Errorf("read: %w", err)
	}
	if len(forms) == 0 {
		return codegen.Output{}, "", fmt.Errorf("read: no forms")
	}

	a := rctx.NewAnalyzer(namespace)
	exprs := make([]*analyzer.Expr, 0, len(forms))
	for _, f := range forms {
		expr, err := a.Analyze(ctx, f)
		if err != nil {
			return codegen.Output{}, "", fmt.Errorf("analyze: %w", err)
		}
		exprs = append(exprs, expr)
	}

	body := exprs[len(exprs)-1]
	if len(exprs) > 1 {
		body = &analyzer.Expr{Kind: analyzer.ExprDo, Loc: exprs[0].Loc, Body: exprs}
	}

	gen := codegen.New(codegen.Options{
		Target:       target,
		Namespace:    ns,
		CompileFiles: rctx.CompileFiles(),
		Counter:      codegen.NewCounter(),
	})
	out, err := gen.Generate(body)
	if err != nil {
		return codegen.Output{}, "", err
	}
	return out, analyzer.CacheKey(ns, exprs, src), nil
}

func newEvalCmd(cfg *config.Config, namespace *string) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <code>",
		Short: "Analyze, codegen, and JIT one expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rctx, err := newRuntimeContext(cfg)
			if err != nil {
				return err
			}
			out, cacheKey, err := generateAndCompile(cmd.Context(), rctx, *namespace, args[0], codegen.TargetEval)
			if err != nil {
				return err
			}
			unit, err := rctx.CompileCached(cmd.Context(), cacheKey, jit.CompileRequest{
				Namespace:   *namespace,
				EntrySymbol: out.EntrySymbol,
				Source:      out.Source,
				Deps:        out.Deps,
			})
			if err != nil {
				return err
			}
			fmt.Println(unit.EntrySymbol)
			return nil
		},
	}
}

func newCompileCmd(cfg *config.Config, namespace *string) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "compile <code>",
		Short: "Cross-compile source into an AOT module or patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rctx, err := newRuntimeContext(cfg)
			if err != nil {
				return err
			}

			var t codegen.Target
			switch target {
			case "module":
				t = codegen.TargetModule
			case "wasm-aot":
				t = codegen.TargetWasmAOT
			case "patch":
				t = codegen.TargetPatch
			default:
				return fmt.Errorf("unknown target %q (want module, wasm-aot, or patch)", target)
			}

			out, _, err := generateAndCompile(cmd.Context(), rctx, *namespace, args[0], t)
			if err != nil {
				return err
			}
			fmt.Print(out.Source)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "module", "module, wasm-aot, or patch")
	return cmd
}

func newReplCmd(cfg *config.Config, namespace *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive read-eval-print loop over stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			rctx, err := newRuntimeContext(cfg)
			if err != nil {
				return err
			}

			// Piped input (e.g. `corelisp repl < script.cl`) gets no
			// prompt noise mixed into its output; an interactive
			// terminal does.
			interactive := isatty.IsTerminal(os.Stdin.Fd())
			prompt := func() {
				if interactive {
					fmt.Fprintf(os.Stdout, "%s=> ", *namespace)
				}
			}

			scanner := bufio.NewScanner(os.Stdin)
			prompt()
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					prompt()
					continue
				}

				out, cacheKey, err := generateAndCompile(cmd.Context(), rctx, *namespace, line, codegen.TargetEval)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					prompt()
					continue
				}
				unit, err := rctx.CompileCached(cmd.Context(), cacheKey, jit.CompileRequest{
					Namespace:   *namespace,
					EntrySymbol: out.EntrySymbol,
					Source:      out.Source,
					Deps:        out.Deps,
				})
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				} else {
					fmt.Fprintln(os.Stdout, unit.EntrySymbol)
				}
				prompt()
			}
			if interactive {
				fmt.Fprintln(os.Stdout)
			}
			return scanner.Err()
		},
	}
}

func newServeCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the remote compile server (spec §4.7)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.RemoteAddr
			}
			rctx, err := newRuntimeContext(cfg)
			if err != nil {
				return err
			}
			server := remote.NewServer(rctx)
			server.Logger = logger
			server.DefaultIncludePaths = cfg.SearchPaths

			logger.Info("remote compile server listening", "addr", addr)
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from CORELISP_REMOTE_ADDR)")
	return cmd
}

func newNreplCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var addr string
	var ws bool
	cmd := &cobra.Command{
		Use:   "nrepl",
		Short: "Run the nREPL engine (spec §4.8)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.NReplAddr
			}
			rctx, err := newRuntimeContext(cfg)
			if err != nil {
				return err
			}
			server := nrepl.NewServer(rctx)
			server.Logger = logger

			if ws {
				logger.Info("nrepl websocket server listening", "addr", addr)
				wsServer := nrepl.NewWSServer(rctx)
				wsServer.Logger = logger
				return serveWS(cmd.Context(), addr, wsServer)
			}

			logger.Info("nrepl server listening", "addr", addr)
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from CORELISP_NREPL_ADDR)")
	cmd.Flags().BoolVar(&ws, "ws", false, "serve the nREPL protocol over websocket instead of raw TCP")
	return cmd
}

// serveWS runs wsServer behind a plain net/http server, shutting down
// when ctx is cancelled (the signal-driven context from signalContext).
func serveWS(ctx context.Context, addr string, wsServer *nrepl.WSServer) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", wsServer.ServeHTTP)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// bridgeFromContext constructs an internal/abi.Bridge over rctx's JIT
// engine. No subcommand calls it; every subcommand drives the pipeline
// directly.
func bridgeFromContext(rctx *runtime.Context) *abi.Bridge {
	return abi.NewBridge(rctx.JIT)
}
