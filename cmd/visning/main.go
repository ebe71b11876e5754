package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/visning/internal/adapters/crm"
	"github.com/hylla/visning/internal/adapters/server"
	"github.com/hylla/visning/internal/adapters/storage/sqlite"
	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/config"
	"github.com/hylla/visning/internal/domain"
	"github.com/hylla/visning/internal/platform"
	"github.com/hylla/visning/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("visning", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		apiBaseURL string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("VISNING_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("VISNING_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "visning"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database")
	fs.StringVar(&apiBaseURL, "api", "", "base URL of the CRM API (empty disables remote sync)")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "visning %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "serve", "sync":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("VISNING_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("VISNING_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	defaultCfg := config.Default(dbPath)
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if strings.TrimSpace(apiBaseURL) == "" {
		if envURL := strings.TrimSpace(os.Getenv("VISNING_API_URL")); envURL != "" {
			apiBaseURL = envURL
		} else {
			apiBaseURL = cfg.API.BaseURL
		}
	}

	logger, err := newRuntimeLogger(stderr, appName, devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "" {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the queue is active.
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", appName, "dev_mode", devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	var remote *crm.Client
	var syncer app.Syncer
	if strings.TrimSpace(apiBaseURL) != "" {
		remote, err = crm.New(apiBaseURL, crm.WithLogger(logger.consoleSink))
		if err != nil {
			return fmt.Errorf("configure crm client: %w", err)
		}
		syncer = remote
		logger.Info("remote sync enabled", "base_url", apiBaseURL)
	} else {
		logger.Info("remote sync disabled; mutations stay local")
	}

	svc := app.NewService(repo, syncer, uuid.NewString, nil, app.ServiceConfig{
		UndoCapacity: cfg.Undo.Capacity,
		SyncTimeout:  time.Duration(cfg.API.TimeoutMS) * time.Millisecond,
	})

	switch command {
	case "serve":
		logger.Info("command flow start", "command", "serve")
		if err := runServe(ctx, svc, fs.Args()[1:], appName, logger); err != nil {
			logger.Error("command flow failed", "command", "serve", "err", err)
			return fmt.Errorf("run serve command: %w", err)
		}
		logger.Info("command flow complete", "command", "serve")
		return nil
	case "sync":
		logger.Info("command flow start", "command", "sync")
		if err := runSync(ctx, repo, remote, stdout); err != nil {
			logger.Error("command flow failed", "command", "sync", "err", err)
			return fmt.Errorf("run sync command: %w", err)
		}
		logger.Info("command flow complete", "command", "sync")
		return nil
	}

	m := tui.NewModel(
		svc,
		tui.WithInitialTab(app.Tab(cfg.Inbox.DefaultTab)),
		tui.WithViewMode(app.ViewMode(cfg.Inbox.ViewMode)),
		tui.WithDateGrouping(cfg.Inbox.GroupByDate),
		tui.WithKeyConfig(tui.KeyConfig{
			MultiSelect: cfg.Keys.MultiSelect,
			SelectAll:   cfg.Keys.SelectAll,
			Complete:    cfg.Keys.Complete,
			Dismiss:     cfg.Keys.Dismiss,
			Snooze:      cfg.Keys.Snooze,
			Assign:      cfg.Keys.Assign,
			Undo:        cfg.Keys.Undo,
			ToggleView:  cfg.Keys.ToggleView,
			ToggleGroup: cfg.Keys.ToggleGroup,
			Search:      cfg.Keys.Search,
		}),
	)
	logger.Info("starting tui program loop")
	_, err = programFactory(m).Run()
	if err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runServe runs the read-only HTTP/MCP server until interrupted.
func runServe(ctx context.Context, svc *app.Service, args []string, appName string, logger *runtimeLogger) error {
	fs := flag.NewFlagSet("visning serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var bind string
	fs.StringVar(&bind, "bind", "", "listen address (default 127.0.0.1:8421)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse serve flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected serve arguments: %v", fs.Args())
	}
	if bind == "" {
		bind = strings.TrimSpace(os.Getenv("VISNING_HTTP_BIND"))
	}

	serveCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := server.Config{
		HTTPBind:      bind,
		ServerName:    appName,
		ServerVersion: version,
	}
	logger.Info("serving queue api", "bind", cfg.HTTPBind)
	return server.Run(serveCtx, cfg, server.Dependencies{Queue: svc})
}

// runSync pulls the CRM book into the local store: customers, pipeline
// stages, upcoming appointments as site-visit actions, and the WhatsApp
// channel state.
func runSync(ctx context.Context, repo *sqlite.Repository, remote *crm.Client, stdout io.Writer) error {
	if remote == nil {
		return fmt.Errorf("sync requires a CRM base URL (--api or VISNING_API_URL)")
	}
	customers, err := remote.ListCustomers(ctx)
	if err != nil {
		return fmt.Errorf("fetch customers: %w", err)
	}
	customerNames := make(map[string]string, len(customers))
	for _, customer := range customers {
		if err := repo.UpsertCustomer(ctx, customer); err != nil {
			return fmt.Errorf("store customer %s: %w", customer.ID, err)
		}
		customerNames[customer.ID] = customer.Name
	}
	stages, err := remote.ListStages(ctx)
	if err != nil {
		return fmt.Errorf("fetch pipeline stages: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "synced %d customers across %d pipeline stages\n", len(customers), len(stages))

	imported, err := importAppointments(ctx, repo, remote, customerNames)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "imported %d site visits\n", imported)

	channel, err := remote.GetChannelConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch channel config: %w", err)
	}
	if channel.Enabled {
		_, _ = fmt.Fprintf(stdout, "whatsapp channel connected: %s\n", channel.PhoneNumber)
	} else {
		_, _ = fmt.Fprintln(stdout, "whatsapp channel disabled")
	}
	return nil
}

// importAppointments mirrors upcoming appointments as site-visit actions,
// keyed on the appointment id so re-running sync stays idempotent.
func importAppointments(ctx context.Context, repo *sqlite.Repository, remote *crm.Client, customerNames map[string]string) (int, error) {
	appointments, err := remote.ListAppointments(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch appointments: %w", err)
	}
	imported := 0
	for _, appointment := range appointments {
		actionID := "visit-" + appointment.ID
		if _, err := repo.GetAction(ctx, actionID); err == nil {
			continue
		}
		title := strings.TrimSpace(appointment.Title)
		if title == "" {
			title = "Site visit"
		}
		due := appointment.At
		action, err := domain.NewAction(domain.ActionInput{
			ID:           actionID,
			CustomerID:   appointment.CustomerID,
			CustomerName: customerNames[appointment.CustomerID],
			Type:         domain.TypeSiteVisit,
			Title:        title,
			Priority:     domain.PriorityMedium,
			Source:       domain.SourceImport,
			DueAt:        &due,
		}, time.Now())
		if err != nil {
			return imported, fmt.Errorf("build site visit %s: %w", appointment.ID, err)
		}
		if err := repo.CreateAction(ctx, action); err != nil {
			return imported, fmt.Errorf("store site visit %s: %w", appointment.ID, err)
		}
		imported++
	}
	return imported, nil
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}

	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})

	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// Keep file output parseable and unstyled while preserving styled console logs.
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil {
		return false
	}
	if sink == nil {
		return false
	}
	if sink == l.consoleSink && !l.consoleEnabled {
		return false
	}
	return true
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Debug(msg, keyvals...)
	}
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Info(msg, keyvals...)
	}
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Warn(msg, keyvals...)
	}
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Error(msg, keyvals...)
	}
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".visning/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(cwd, baseDir)
	}
	fileStem := sanitizeLogFileStem(appName)
	fileName := fmt.Sprintf("%s-%s.log", fileStem, now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// sanitizeLogFileStem normalizes app names into safe file-name segments.
func sanitizeLogFileStem(appName string) string {
	stem := strings.TrimSpace(appName)
	if stem == "" {
		return "visning"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem = strings.Trim(replacer.Replace(stem), "-")
	if stem == "" {
		return "visning"
	}
	return stem
}
