// Package trials implements the orchestrator for the confidential trials
// registry: loading the registry, creating trials with an encrypted age,
// verifying decryptions on-chain and probing contract availability.
//
// Every workflow catches its own failures, reports them on the status
// banner and returns them to the caller. Each workflow admits one run at a
// time; an overlapping call fails with interfaces.ErrWorkflowBusy and leaves
// the banner alone.
package trials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/atomic"

	"github.com/ruteri/confidential-trials/banner"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/ruteri/confidential-trials/metrics"
)

// Workflow names used in logs and metrics.
const (
	WorkflowInitialize = "initialize"
	WorkflowRefresh    = "refresh"
	WorkflowCreate     = "create"
	WorkflowVerify     = "verify"
	WorkflowProbe      = "probe"
)

// Config configures an Orchestrator.
type Config struct {
	// SuccessDelay and ErrorDelay control banner dismissal. Zero uses 2s and 3s.
	SuccessDelay time.Duration
	ErrorDelay   time.Duration

	// Clock drives banner timers, trial identifiers and workflow timings.
	// Nil uses the wall clock.
	Clock clock.Clock

	Log *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Recorder
}

// Orchestrator owns the in-memory view of the registry and runs the workflows.
type Orchestrator struct {
	registry interfaces.TrialRegistry
	fhe      interfaces.FHEClient
	wallet   interfaces.Wallet
	banner   *banner.Banner
	clock    clock.Clock
	log      *slog.Logger
	metrics  *metrics.Recorder

	mu       sync.RWMutex
	trials   []interfaces.Trial
	selected *interfaces.TrialID
	form     Form

	initialized  atomic.Bool
	initializing workflowGuard
	refreshing   workflowGuard
	creating     workflowGuard
	decrypting   workflowGuard
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(cfg Config, registry interfaces.TrialRegistry, fheClient interfaces.FHEClient, wallet interfaces.Wallet) *Orchestrator {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		fhe:      fheClient,
		wallet:   wallet,
		banner:   banner.New(clk, cfg.SuccessDelay, cfg.ErrorDelay),
		clock:    clk,
		log:      log,
		metrics:  cfg.Metrics,
	}
}

// Initialize prepares the FHE client and loads the registry. It is run
// once the wallet is connected.
func (o *Orchestrator) Initialize(ctx context.Context) (err error) {
	if !o.initializing.enter() {
		o.recordBusy(WorkflowInitialize)
		return interfaces.ErrWorkflowBusy
	}
	defer o.initializing.exit()
	defer o.observe(WorkflowInitialize, o.clock.Now(), &err)

	if _, ok := o.wallet.Account(); !ok {
		o.banner.Error(MsgConnectWallet)
		return interfaces.ErrNotConnected
	}

	if !o.initialized.Load() {
		if err := o.fhe.Initialize(ctx); err != nil {
			o.log.Error("FHE initialization failed", "err", err)
			o.banner.Error(MsgInitFailed)
			if errors.Is(err, interfaces.ErrInitialization) {
				return err
			}
			return fmt.Errorf("%w: %w", interfaces.ErrInitialization, err)
		}
		o.initialized.Store(true)
	}

	return o.reload(ctx)
}

// Initialized reports whether the FHE client is ready.
func (o *Orchestrator) Initialized() bool {
	return o.initialized.Load()
}

// Refresh reloads the registry.
func (o *Orchestrator) Refresh(ctx context.Context) (err error) {
	if !o.refreshing.enter() {
		o.recordBusy(WorkflowRefresh)
		return interfaces.ErrWorkflowBusy
	}
	defer o.refreshing.exit()
	defer o.observe(WorkflowRefresh, o.clock.Now(), &err)

	return o.reload(ctx)
}

// reload replaces the trial list with the registry contents. Records that
// fail to load are skipped. If the identifiers cannot be listed the
// current list is kept. Without a connected wallet this is a no-op.
func (o *Orchestrator) reload(ctx context.Context) error {
	if _, ok := o.wallet.Account(); !ok {
		return nil
	}

	ids, err := o.registry.AllTrialIDs(ctx)
	if err != nil {
		o.log.Error("Failed to list trials", "err", err)
		o.banner.Error(MsgLoadFailed)
		if errors.Is(err, interfaces.ErrFetchFailure) {
			return err
		}
		return fmt.Errorf("%w: %w", interfaces.ErrFetchFailure, err)
	}

	loaded := make([]interfaces.Trial, 0, len(ids))
	verified := 0
	for _, id := range ids {
		trial, err := o.registry.Trial(ctx, id)
		if err != nil {
			o.log.Warn("Skipping trial that failed to load", "id", id, "err", err)
			continue
		}
		if trial.IsVerified {
			verified++
		}
		loaded = append(loaded, *trial)
	}

	o.mu.Lock()
	o.trials = loaded
	if o.selected != nil {
		if _, ok := findTrial(loaded, *o.selected); !ok {
			o.selected = nil
		}
	}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.SetRegistrySize(len(loaded), verified)
	}
	o.log.Debug("Registry loaded", "trials", len(loaded), "skipped", len(ids)-len(loaded))
	return nil
}

// CreateTrial encrypts input.Age, writes the record and waits for the
// confirmation. On success the registry is reloaded and the form is reset
// and closed; on failure the form is left as it was.
func (o *Orchestrator) CreateTrial(ctx context.Context, input interfaces.TrialInput) (id interfaces.TrialID, err error) {
	if !o.creating.enter() {
		o.recordBusy(WorkflowCreate)
		return "", interfaces.ErrWorkflowBusy
	}
	defer o.creating.exit()
	defer o.observe(WorkflowCreate, o.clock.Now(), &err)

	o.setSubmitting(true)
	defer o.setSubmitting(false)

	account, ok := o.wallet.Account()
	if !ok {
		o.banner.Error(MsgConnectWallet)
		return "", interfaces.ErrNotConnected
	}

	id, err = o.createTrial(ctx, account, input)
	if err != nil {
		o.log.Error("Trial creation failed", "id", id, "err", err)
		if errors.Is(err, interfaces.ErrUserRejected) {
			o.banner.Error(MsgRejected)
		} else {
			o.banner.Error(MsgSubmissionFailed + err.Error())
		}
		return "", err
	}

	o.banner.Success(MsgCreated)
	if err := o.reload(ctx); err != nil {
		o.log.Warn("Reload after creation failed", "id", id, "err", err)
	}

	o.mu.Lock()
	o.form = Form{}
	o.mu.Unlock()

	return id, nil
}

func (o *Orchestrator) createTrial(ctx context.Context, account common.Address, input interfaces.TrialInput) (interfaces.TrialID, error) {
	if err := input.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", interfaces.ErrSubmissionFailure, err)
	}

	auth, err := o.wallet.TransactOpts(ctx)
	if err != nil {
		return "", err
	}
	writer := o.registry.BindSigner(auth)

	o.banner.Pending(MsgCreating)
	id := interfaces.NewTrialID(o.clock.Now())

	encrypted, err := o.fhe.Encrypt(ctx, o.registry.Address(), account, input.Age)
	if err != nil {
		return id, err
	}

	tx, err := writer.CreateTrial(ctx, id, input, encrypted)
	if err != nil {
		return id, err
	}

	o.banner.Pending(MsgAwaitingConfirm)
	if _, err := writer.WaitConfirmed(ctx, tx); err != nil {
		return id, err
	}

	o.log.Info("Trial created", "id", id, "tx", tx.Hash().Hex(), "creator", account.Hex())
	return id, nil
}

// Verify decrypts the trial's age through the decryption protocol and
// records the result on-chain. A trial that is already verified returns its
// stored value without another transaction.
func (o *Orchestrator) Verify(ctx context.Context, id interfaces.TrialID) (value uint32, err error) {
	if !o.decrypting.enter() {
		o.recordBusy(WorkflowVerify)
		return 0, interfaces.ErrWorkflowBusy
	}
	defer o.decrypting.exit()
	defer o.observe(WorkflowVerify, o.clock.Now(), &err)

	if _, ok := o.wallet.Account(); !ok {
		o.banner.Error(MsgConnectWallet)
		return 0, interfaces.ErrNotConnected
	}

	trial, err := o.registry.Trial(ctx, id)
	if err != nil {
		return 0, o.verificationFailed(id, err)
	}
	if age, ok := trial.Age(); ok {
		o.banner.Success(MsgStoredVerified)
		return age, nil
	}

	auth, err := o.wallet.TransactOpts(ctx)
	if err != nil {
		return 0, o.verificationFailed(id, err)
	}
	writer := o.registry.BindSigner(auth)

	handle, err := o.registry.CiphertextHandle(ctx, id)
	if err != nil {
		return 0, o.verificationFailed(id, err)
	}

	submitted := atomic.NewBool(false)
	submit := func(ctx context.Context, clearValues []byte, proof []byte) (*types.Transaction, error) {
		submitted.Store(true)
		return writer.SubmitVerification(ctx, id, clearValues, proof)
	}
	result, err := o.fhe.VerifyDecryption(ctx, []interfaces.CiphertextHandle{handle}, o.registry.Address(), submit)
	// A verification mined after a concurrent one reverts instead of failing estimation.
	if errors.Is(err, interfaces.ErrSubmissionFailure) && submitted.Load() && o.verifiedOnChain(ctx, id) {
		err = fmt.Errorf("%w: %w", interfaces.ErrAlreadyVerified, err)
	}
	if errors.Is(err, interfaces.ErrAlreadyVerified) {
		o.log.Info("Trial verified concurrently", "id", id)
		o.banner.Success(MsgRaceVerified)
		if err := o.reload(ctx); err != nil {
			o.log.Warn("Reload after verification race failed", "id", id, "err", err)
		}
		return o.storedValue(ctx, id), nil
	}
	if err != nil {
		return 0, o.verificationFailed(id, err)
	}

	o.banner.Pending(MsgVerifying)

	value, err = clearUint32(result.ClearValues[handle])
	if err != nil {
		return 0, o.verificationFailed(id, err)
	}
	o.adopt(id, value)

	if err := o.reload(ctx); err != nil {
		o.log.Warn("Reload after verification failed", "id", id, "err", err)
	}

	o.log.Info("Trial verified", "id", id, "tx", result.TxHash.Hex())
	o.banner.Success(MsgVerified)
	return value, nil
}

func (o *Orchestrator) verificationFailed(id interfaces.TrialID, err error) error {
	o.log.Error("Verification failed", "id", id, "err", err)
	o.banner.Error(MsgDecryptionFailed + err.Error())
	return err
}

func (o *Orchestrator) verifiedOnChain(ctx context.Context, id interfaces.TrialID) bool {
	trial, err := o.registry.Trial(ctx, id)
	if err != nil {
		o.log.Warn("Could not re-read trial after failed verification", "id", id, "err", err)
		return false
	}
	return trial.IsVerified
}

// adopt records a verified clear value on the loaded trial.
func (o *Orchestrator) adopt(id interfaces.TrialID, value uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.trials {
		if o.trials[i].ID == id {
			o.trials[i].IsVerified = true
			o.trials[i].DecryptedValue = value
			return
		}
	}
}

// storedValue returns the verified value from the loaded list, falling
// back to the registry when the trial is not loaded.
func (o *Orchestrator) storedValue(ctx context.Context, id interfaces.TrialID) uint32 {
	o.mu.RLock()
	trial, ok := findTrial(o.trials, id)
	o.mu.RUnlock()
	if !ok {
		fetched, err := o.registry.Trial(ctx, id)
		if err != nil {
			o.log.Warn("Could not read stored value", "id", id, "err", err)
			return 0
		}
		trial = *fetched
	}
	age, _ := trial.Age()
	return age
}

func clearUint32(v *big.Int) (uint32, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: no clear value returned for handle", interfaces.ErrSubmissionFailure)
	}
	if !v.IsUint64() || v.Uint64() > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: clear value %s overflows uint32", interfaces.ErrSubmissionFailure, v)
	}
	return uint32(v.Uint64()), nil
}

// Probe checks that the registry contract answers. A contract reporting
// itself unavailable counts as a failure.
func (o *Orchestrator) Probe(ctx context.Context) (err error) {
	defer o.observe(WorkflowProbe, o.clock.Now(), &err)

	available, err := o.registry.IsAvailable(ctx)
	if err == nil && !available {
		err = fmt.Errorf("%w: contract reported unavailable", interfaces.ErrFetchFailure)
	}
	if err != nil {
		o.log.Warn("Availability probe failed", "contract", o.registry.Address().Hex(), "err", err)
		o.banner.Error(MsgContractTestFailed)
		return err
	}

	o.banner.Success(MsgContractAvailable)
	return nil
}

func (o *Orchestrator) observe(workflow string, start time.Time, err *error) {
	if o.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case *err == nil:
	case errors.Is(*err, interfaces.ErrUserRejected):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeFailure
	}
	o.metrics.ObserveWorkflow(workflow, outcome, o.clock.Now().Sub(start))
}

func (o *Orchestrator) recordBusy(workflow string) {
	if o.metrics != nil {
		o.metrics.ObserveWorkflow(workflow, metrics.OutcomeBusy, 0)
	}
}
