package main

import (
	"fmt"
	"os"

	"interviewer/internal/factory"
	"interviewer/pkg/catalog"
	"interviewer/pkg/checkpoint"
	"interviewer/pkg/config"
	"interviewer/pkg/eventlog"
	"interviewer/pkg/interview"
	"interviewer/pkg/logx"
	"interviewer/pkg/oracle/middleware/metrics"
	"interviewer/pkg/tokens"
)

// app bundles the wired collaborators a command needs: resolved config, the
// engine, the topic catalog, and the closers to run at shutdown.
type app struct {
	cfg     config.Config
	engine  *interview.Engine
	topics  []catalog.Topic
	logger  *logx.Logger
	closers []func() error
}

// newApp loads configuration and wires the engine. The recorder decides
// whether oracle calls feed Prometheus; the console runner passes
// metrics.Nop() since nothing scrapes it there.
func newApp(configPath string, recorder metrics.Recorder) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logx.NewLogger("interviewer")}
	loadSecrets(".", a.logger)

	store, err := a.buildStore()
	if err != nil {
		return nil, err
	}

	client, err := factory.NewOracleFactory(&a.cfg, recorder).NewClient()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("oracle client: %w", err)
	}

	engineOpts := []interview.Option{}
	if counter, err := tokens.NewCounter(cfg.Oracle.Model); err == nil {
		engineOpts = append(engineOpts, interview.WithTokenCounter(counter))
	}
	if cfg.Logs.Transcript {
		events, err := eventlog.NewWriter(cfg.Logs.Dir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("transcript log: %w", err)
		}
		a.closers = append(a.closers, events.Close)
		engineOpts = append(engineOpts, interview.WithEventLog(events))
	}

	eng, err := interview.New(client, store, engineOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = eng

	a.topics = loadTopics(cfg.Catalog, a.logger)
	return a, nil
}

// Close runs the registered closers in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Shutdown: %v", err)
		}
	}
}

// buildStore constructs the configured checkpoint backend. Backends that hold
// resources register their Close with the app.
func (a *app) buildStore() (checkpoint.Store, error) {
	switch a.cfg.Store.Backend {
	case config.StoreMemory:
		a.logger.Warn("Using the in-memory store; sessions will not survive a restart")
		return checkpoint.NewMemory(), nil

	case config.StoreFile:
		return checkpoint.NewFile(a.cfg.Store.Dir)

	case config.StoreSQLite:
		store, err := checkpoint.NewSQLite(a.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	case config.StoreRedis:
		opts := []checkpoint.RedisOption{}
		if a.cfg.Store.KeyPrefix != "" {
			opts = append(opts, checkpoint.WithPrefix(a.cfg.Store.KeyPrefix))
		}
		if a.cfg.Store.SessionTTL > 0 {
			opts = append(opts, checkpoint.WithTTL(a.cfg.Store.SessionTTL))
		}
		password, _ := config.GetSecret("REDIS_PASSWORD")
		store := checkpoint.NewRedis(a.cfg.Store.RedisAddr, password, a.cfg.Store.RedisDB, opts...)
		a.closers = append(a.closers, store.Close)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}

// loadSecrets decrypts the local secrets file when a password is available.
// A missing file or password is not an error; environment variables remain
// the fallback for API keys.
func loadSecrets(baseDir string, logger *logx.Logger) {
	if !config.SecretsFileExists(baseDir) {
		return
	}
	password := os.Getenv("INTERVIEWER_PASSWORD")
	if password == "" {
		logger.Debug("Secrets file present but INTERVIEWER_PASSWORD is unset")
		return
	}
	secrets, err := config.DecryptSecretsFile(baseDir, password)
	if err != nil {
		logger.Warn("Failed to decrypt secrets file: %v", err)
		return
	}
	config.SetDecryptedSecrets(secrets)
	logger.Info("Loaded %d secrets from encrypted store", len(secrets))
}

// loadTopics resolves the topic catalog, falling back to the built-in topics
// when the configured catalog cannot be read.
func loadTopics(path string, logger *logx.Logger) []catalog.Topic {
	topics, err := catalog.Load(path)
	if err != nil {
		logger.Warn("Failed to load catalog %s, using built-in topics: %v", path, err)
		return catalog.Default()
	}
	return topics
}
