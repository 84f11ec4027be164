package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/loykin/aegisrun/internal/api"
	"github.com/loykin/aegisrun/internal/auth"
	acommon "github.com/loykin/aegisrun/internal/auth/common"
	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/config"
	"github.com/loykin/aegisrun/internal/constants"
)

// Orchestrator runs the end-to-end scenario against the Aegis backend:
// sign in, upload receipts, query transactions, ask the agent, then smoke-check
// the profile and agent endpoints. Items are sent one at a time, in order.
type Orchestrator struct {
	cfg    *config.Config
	logger *common.Logger
	now    func() time.Time

	mu    sync.RWMutex
	state State
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger; the process default is used otherwise.
func WithLogger(l *common.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source used for the transaction query window.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an orchestrator for one run of cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: common.GetLogger(),
		now:    time.Now,
		state:  StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithComponent("harness")
	return o
}

// State returns the state the run has reached.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("state changed", "state", s.String())
}

// Run executes the scenario once. It returns an error only for fatal aborts:
// invalid configuration (wrapping config.ErrConfig) or failed sign-in (wrapping
// auth.ErrAuth). Item failures are logged and the run carries on.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.State() != StateUnauthenticated {
		return fmt.Errorf("harness: run already started (state %s)", o.State())
	}
	if o.cfg == nil {
		return o.abort(fmt.Errorf("%w: no configuration", config.ErrConfig))
	}
	if err := o.cfg.Validate(); err != nil {
		return o.abort(err)
	}

	h := o.cfg.HTTP()
	acommon.SetHTTP(h)

	provider := o.cfg.IdentityProvider()
	o.logger.WithProvider(provider).Info("signing in test user")
	cred, err := auth.Acquire(ctx, provider, o.cfg.IdentitySpec())
	if err != nil {
		return o.abort(err)
	}
	client, err := api.New(o.cfg.API.BaseURL, cred, h)
	if err != nil {
		return o.abort(fmt.Errorf("%w: %w", auth.ErrAuth, err))
	}
	o.setState(StateAuthenticated)
	o.logger.Info("authenticated", "provider", cred.Provider, "subject", cred.Subject, "base_url", o.cfg.API.BaseURL)

	o.uploadReceipts(ctx, client)
	o.setState(StateUploadsAttempted)

	o.queryTransactions(ctx, client)
	o.setState(StateQueriesAttempted)

	o.askAgent(ctx, client)
	o.setState(StateAgentQueriesAttempted)

	smoke := o.logger.WithStage("smoke")
	smokeAttempt(ctx, smoke, "profile", client.GetProfile)
	o.setState(StateProfileChecked)

	prompt := o.cfg.Run.SmokePrompt
	if prompt == "" {
		prompt = constants.DefaultSmokePrompt
	}
	smokeAttempt(ctx, smoke, "agent", func(ctx context.Context) (*api.Response, error) {
		return client.InvokeAgent(ctx, prompt)
	})
	o.setState(StateAgentSmokeChecked)

	o.setState(StateDone)
	o.logger.Info("run completed")
	return nil
}

func (o *Orchestrator) abort(err error) error {
	o.setState(StateAborted)
	o.logger.Error("run aborted", "error", err)
	return err
}

// receiptFiles lists the files of dir in lexical order. Symlinks are followed;
// entries that do not resolve to a regular file are logged and skipped.
func receiptFiles(dir string, log *common.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			log.Debug("skipping directory entry", "item", e.Name())
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			log.Warn("skipping unreadable receipt", "item", e.Name(), "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			log.Warn("skipping non-regular receipt", "item", e.Name(), "mode", info.Mode().String())
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func (o *Orchestrator) uploadReceipts(ctx context.Context, client *api.Client) {
	log := o.logger.WithStage("upload")
	dir := o.cfg.Run.ReceiptsDir
	files, err := receiptFiles(dir, log)
	if err != nil {
		log.Error("cannot list receipts directory", "dir", dir, "error", err)
		return
	}
	log.Info("uploading receipts", "dir", dir, "files", len(files))

	var t tally
	for _, path := range files {
		t.record(attempt(ctx, log, filepath.Base(path), func(ctx context.Context) (*api.Response, error) {
			return client.UploadReceipt(ctx, path)
		}))
	}
	log.Info("stage completed", t.attrs()...)
}

// queryWindow returns the trailing window ending today. The window is counted
// in calendar days so a DST change inside it does not shift the start date.
func (o *Orchestrator) queryWindow() (time.Time, time.Time) {
	window := o.cfg.Run.QueryWindow
	if window <= 0 {
		window = constants.DefaultQueryWindow
	}
	end := o.now()
	days := int(window / (24 * time.Hour))
	if rest := window % (24 * time.Hour); rest != 0 || days == 0 {
		return end.Add(-window), end
	}
	return end.AddDate(0, 0, -days), end
}

func (o *Orchestrator) queryTransactions(ctx context.Context, client *api.Client) {
	log := o.logger.WithStage("query")
	start, end := o.queryWindow()
	queries := []api.TransactionQuery{
		{Start: start, End: end},
		{Start: start, End: end, Category: o.cfg.Run.Category},
	}

	var t tally
	for _, q := range queries {
		t.record(attempt(ctx, log, q.String(), func(ctx context.Context) (*api.Response, error) {
			return client.FetchTransactions(ctx, q)
		}))
	}
	log.Info("stage completed", t.attrs()...)
}

func (o *Orchestrator) askAgent(ctx context.Context, client *api.Client) {
	log := o.logger.WithStage("agent")
	prompts := o.cfg.Run.Prompts

	var t tally
	for i, prompt := range prompts {
		item := fmt.Sprintf("prompt %d/%d: %s", i+1, len(prompts), prompt)
		t.record(attempt(ctx, log, item, func(ctx context.Context) (*api.Response, error) {
			return client.InvokeAgent(ctx, prompt)
		}))
	}
	log.Info("stage completed", t.attrs()...)
}
