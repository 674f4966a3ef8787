package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"lifeos/internal/app"
	"lifeos/internal/config"
	"lifeos/internal/dashboard"
	"lifeos/internal/logging"
	"lifeos/internal/server"
	"lifeos/internal/termui"
)

var rootCmd = &cobra.Command{
	Use:   "lifeos",
	Short: "LifeOS dashboards",
	Long: `LifeOS reads your personal databases (values, goals, projects, actions, daily
logs, health, emotions, reviews) and renders them as five dashboards:
- compass: core values, active goals and this week's investment per project.
- cockpit: today's actions, vitals and time line.
- foundation: energy, sleep, exercise and emotion trends.
- growth: review events, skills and lessons.
- weekly: a one-screen summary of the current week.
Queries go straight to the upstream API (transport.mode: direct) or through a
relay started with 'lifeos serve' (transport.mode: proxy).`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LIFEOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "directory holding lifeos.yml")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (overrides workspace lookup)")
	rootCmd.PersistentFlags().String("env", "", "environment: development or production")
	rootCmd.PersistentFlags().String("transport", "", "transport mode: direct or proxy")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("transport", rootCmd.PersistentFlags().Lookup("transport"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(completeCmd())
	rootCmd.AddCommand(configCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the query relay and dashboard API",
		Long:  "Serve relays browser queries to the upstream API at proxy.path (default /api/notion) and exposes the dashboard API under --base-path. The relay always talks to the upstream directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), directOnly, app.Options{}, func(ctx context.Context, a *app.App) error {
				cfg := a.Config
				if addr == "" {
					addr = cfg.Proxy.Addr
				}
				authCfg := server.AuthConfig{}
				if cfg.Proxy.JWTSecretEnv != "" {
					authCfg.JWTSecret = os.Getenv(cfg.Proxy.JWTSecretEnv)
				}
				handler, err := server.New(server.Config{
					App:            a,
					Relay:          a.Transport,
					BasePath:       basePath,
					RelayPath:      cfg.Proxy.Path,
					AllowedOrigins: cfg.Proxy.AllowedOrigins,
					Auth:           authCfg,
					Logger:         a.Logger,
				})
				if err != nil {
					return err
				}

				go func() { _ = a.Run(ctx) }()

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.Logger.Info("Serving",
					zap.String("addr", addr),
					zap.String("relay", cfg.Proxy.Path),
					zap.String("api", basePath),
					zap.Bool("auth", authCfg.JWTSecret != ""))
				fmt.Printf("Serving LifeOS on http://%s (relay at %s, API at %s, Swagger UI at %s/docs)\n", addr, cfg.Proxy.Path, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default proxy.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", server.DefaultBasePath, "API base path")
	return cmd
}

func renderCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "render [dashboard]",
		Short: "Render one dashboard, or all of them, once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{}
			asJSON := viper.GetBool("json")
			if !asJSON {
				opts.Sink = termui.NewPrinter(os.Stdout, width)
			}
			return withApp(cmd.Context(), nil, opts, func(ctx context.Context, a *app.App) error {
				var err error
				if len(args) == 1 {
					err = a.Manager.Render(ctx, args[0])
					if errors.Is(err, dashboard.ErrUnknownDashboard) {
						return fmt.Errorf("%w (choose from %s)", err, strings.Join(a.Manager.Names(), ", "))
					}
				} else {
					err = a.Init(ctx)
				}
				if asJSON {
					if perr := printJSON(a.Store.Snapshot()); perr != nil {
						return perr
					}
				} else {
					fmt.Println(termui.Banner(a.Countdown(), a.NoticeMessages()))
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "chart width in columns")
	return cmd
}

func watchCmd() *cobra.Command {
	var width int
	var current, interval string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render every dashboard, then keep the current one fresh",
		Long:  "Watch loads all dashboards and re-renders the current one every refresh_interval until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{Sink: termui.NewPrinter(os.Stdout, width)}
			return withApp(cmd.Context(), nil, opts, func(ctx context.Context, a *app.App) error {
				if interval != "" {
					if _, err := time.ParseDuration(interval); err != nil {
						return fmt.Errorf("--interval: %w", err)
					}
					a.Config.RefreshInterval = interval
				}
				if current != "" {
					if err := a.Manager.SetCurrent(current); err != nil {
						return err
					}
				}
				fmt.Println(termui.Banner(a.Countdown(), nil))
				if err := a.Init(ctx); err != nil {
					fmt.Println(termui.Banner(a.Countdown(), a.NoticeMessages()))
				}
				a.Manager.StartAutoRefresh(ctx, a.Config.Refresh())
				<-ctx.Done()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "chart width in columns")
	cmd.Flags().StringVar(&current, "dashboard", "", "dashboard to keep fresh (default compass)")
	cmd.Flags().StringVar(&interval, "interval", "", "refresh interval (default refresh_interval)")
	return cmd
}

func completeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <action-id>",
		Short: "Mark an action done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), nil, app.Options{}, func(ctx context.Context, a *app.App) error {
				updated, err := a.CompleteAction(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(updated)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Action", "Status", "Last edited"})
				tw.AppendRow(table.Row{updated.ID, a.Gateway.Schema.Done, updated.LastEditedTime})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect lifeos.yml",
		Long:  "Config maps each dataset to its upstream database id (DB_<DATASET> overrides an entry), picks the transport and holds the field labels of every dataset.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Key", "Value"})
			tw.AppendRows([]table.Row{
				{"environment", cfg.Environment},
				{"timezone", cfg.Location().String()},
				{"week_start", cfg.FirstWeekday().String()},
				{"refresh_interval", cfg.Refresh().String()},
				{"transport.mode", cfg.Transport.Mode},
				{"transport.endpoint", cfg.Endpoint()},
				{"upstream.base_url", cfg.Upstream.BaseURL},
				{"proxy.addr", cfg.Proxy.Addr},
				{"proxy.path", cfg.Proxy.Path},
				{"proxy.allowed_origins", strings.Join(cfg.Proxy.AllowedOrigins, ", ")},
			})
			tw.AppendSeparator()
			for _, name := range cfg.DatasetNames() {
				tw.AppendRow(table.Row{"datasets." + name, cfg.Datasets[name]})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default lifeos.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// --- helpers ---

// directOnly forces the upstream transport; the relay must never call itself.
func directOnly(cfg *config.Config) { cfg.Transport.Mode = config.ModeDirect }

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := viper.GetString("config"); path != "" {
		cfg, err = config.FromFile(path)
	} else {
		cfg, err = config.LoadOptional(viper.GetString("workspace"))
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(nil)
	if v := viper.GetString("env"); v != "" {
		cfg.Environment = v
	}
	if v := viper.GetString("transport"); v != "" {
		cfg.Transport.Mode = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, adjust func(*config.Config), opts app.Options, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	a, err := app.Build(cfg, logger, opts)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
