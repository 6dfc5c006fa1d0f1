package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eternalApril/phonebook/internal/config"
	"github.com/eternalApril/phonebook/internal/persistence"
	"github.com/eternalApril/phonebook/internal/storage"
	"github.com/eternalApril/phonebook/internal/wire"
)

// Engine coordinates the execution of commands and manages the background tasks of the phonebook
type Engine struct {
	commands map[string]command    // Registry of available commands (the key is the command path segment)
	storage  storage.Storage       // Shared backend, safe for concurrent use
	cfg      *config.Config        // Configuration engine
	writeMu  sync.Mutex            // Orders write commands with their journal records
	stop     chan struct{}         // Channel for the background save stop signal
	stopOnce sync.Once             // Ensures that the stop happens only once
	wg       sync.WaitGroup        // Tracks background goroutines
	journal  *persistence.Journal  // Journal instance
	snapshot *persistence.Snapshot // Snapshot instance
	logger   *zap.Logger
}

// NewEngine initializes the engine, registers the commands and, if enabled in the config,
// restores state from the journal or the snapshot and starts periodic snapshots
func NewEngine(ctx context.Context, s storage.Storage, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	engine := &Engine{
		commands: make(map[string]command),
		storage:  s,
		cfg:      cfg,
		stop:     make(chan struct{}),
		logger:   logger,
	}
	engine.registerBasicCommands()

	entries, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect storage: %w", err)
	}
	empty := len(entries) == 0
	restored := false

	if cfg.Persistence.Journal.Enabled {
		journal, err := persistence.NewJournal(
			cfg.Persistence.Journal.Filename,
			cfg.Persistence.Journal.Fsync,
			logger,
		)
		if err != nil {
			return nil, err
		}
		engine.journal = journal

		if empty {
			restored = engine.restoreJournal(ctx)
		}
	}

	if cfg.Persistence.Snapshot.Enabled {
		engine.snapshot = persistence.NewSnapshot(cfg.Persistence.Snapshot.Filename, logger)

		if empty && !restored {
			if _, err := engine.snapshot.Load(ctx, s); err != nil {
				logger.Error("failed to load snapshot", zap.Error(err))
			}
		}

		if cfg.Persistence.Snapshot.Interval > 0 {
			engine.wg.Add(1)
			go engine.startAutoSave(cfg.Persistence.Snapshot.Interval)
		}
	}

	return engine, nil
}

func (e *Engine) startAutoSave(interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.snapshot.Save(context.Background(), e.storage); err != nil {
				e.logger.Error("auto-save snapshot failed", zap.Error(err))
			}
		case <-e.stop:
			return
		}
	}
}

// restoreJournal replays the journal into the storage. Returns true if any record was applied
func (e *Engine) restoreJournal(ctx context.Context) bool {
	records, err := e.journal.Load()
	if err != nil {
		e.logger.Error("failed to load journal", zap.Error(err))
	}
	if len(records) == 0 {
		return false
	}

	e.logger.Info("restoring journal...", zap.Int("records", len(records)))

	applied := 0
	for _, rec := range records {
		cmd, ok := e.commands[rec.Cmd]
		if !ok || !isWriteCommand(rec.Cmd) {
			continue
		}

		res, err := cmd.execute(&request{ctx: ctx, body: rec.Body, storage: e.storage})
		if err != nil {
			e.logger.Error("journal replay failed", zap.String("cmd", rec.Cmd), zap.Error(err))
			continue
		}
		if res.Status == http.StatusCreated {
			applied++
		}
	}

	e.logger.Info("journal restore finished", zap.Int("applied", applied))
	return applied > 0
}

// register adds a new command to the engine
func (e *Engine) register(name string, cmd command) {
	e.commands[name] = cmd
}

// registerBasicCommands fills the registry with the phonebook commands
func (e *Engine) registerBasicCommands() {
	e.register("list", commandFunc(list))
	e.register("create", commandFunc(create))
	e.register("remove", commandFunc(remove))
	e.register("update", commandFunc(update))
	e.register("search", commandFunc(search))

	if e.logger.Core().Enabled(zap.DebugLevel) {
		for name, meta := range commandRegistry {
			e.logger.Debug("command registered",
				zap.String("cmd", name),
				zap.String("method", meta.method),
				zap.String("summary", meta.summary),
			)
		}
	}
}

// Execute finds the command by method and name and executes it with the request body.
// Unknown commands answer 404; internal faults are logged and answer a generic 500
func (e *Engine) Execute(ctx context.Context, method, name string, body []byte) wire.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("body_len", len(body)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok || !knownCommand(method, name) {
		return wire.MakeUnknownAction()
	}

	req := &request{
		ctx:     ctx,
		body:    body,
		storage: e.storage,
	}

	write := e.journal != nil && isWriteCommand(name)
	if write {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
	}

	res, err := cmd.execute(req)
	if err != nil {
		e.logger.Error("command failed", zap.String("cmd", name), zap.Error(err))
		return wire.MakeServerError()
	}

	if write && res.Status == http.StatusCreated {
		payload, err := wire.SerializeCommand(name, body)
		if err != nil {
			e.logger.Error("failed to serialize command for journal", zap.Error(err))
		} else {
			e.journal.Write(payload)
		}
	}

	return res
}

// Shutdown stops the background services, writes a final snapshot and closes the journal
func (e *Engine) Shutdown(ctx context.Context) {
	e.stopOnce.Do(func() {
		close(e.stop)
		e.wg.Wait()
		e.logger.Info("background save stopped")

		if e.snapshot != nil {
			if err := e.snapshot.Save(ctx, e.storage); err != nil {
				e.logger.Error("final snapshot failed", zap.Error(err))
			}
		}

		if e.journal != nil {
			if err := e.journal.Close(); err != nil {
				e.logger.Error("journal close failed", zap.Error(err))
			}
		}
	})
}
