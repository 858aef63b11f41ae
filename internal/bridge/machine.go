package bridge

import (
	"fmt"
	"sync"

	"QuantumLink/internal/logger"
)

// Gateway is the host ledger the bridge settles against.
type Gateway interface {
	// BalanceOf returns the spendable balance of account.
	BalanceOf(account Address) uint64
	// Burn removes amount from account.
	Burn(from Address, amount uint64) error
	// Mint creates amount in the bridge custody account.
	Mint(amount uint64) error
	// Transfer moves amount from the bridge custody account to to.
	Transfer(to Address, amount uint64) error
	// CurrentTick returns the host's monotonic tick.
	CurrentTick() uint64
}

// Config holds the bridge parameters.
type Config struct {
	Limits           Limits  // Limits are the capacity bounds
	Threshold        int     // Threshold is the quorum size M for unlocks
	MinLockAmount    uint64  // MinLockAmount is the smallest accepted lock (0 = any positive amount)
	MaxLockAmount    uint64  // MaxLockAmount is the largest accepted lock (0 = unbounded)
	SourceChain      ChainID // SourceChain is recorded on locks made here
	DestinationChain ChainID // DestinationChain is where locked value is released
	Custody          Address // Custody is the gateway account minted into
}

// Validate checks the configuration against a validator set of the given size.
func (c Config) Validate(validators int) error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}

	if validators > c.Limits.MaxValidators {
		return fmt.Errorf("validator set of %d exceeds max %d", validators, c.Limits.MaxValidators)
	}

	if c.Threshold < c.Limits.MinQuorum || c.Threshold > validators {
		return fmt.Errorf("threshold %d must be in [%d, %d]", c.Threshold, c.Limits.MinQuorum, validators)
	}

	if c.MaxLockAmount != 0 && c.MaxLockAmount < c.MinLockAmount {
		return fmt.Errorf("max lock amount %d below min %d", c.MaxLockAmount, c.MinLockAmount)
	}

	if c.SourceChain == c.DestinationChain {
		return fmt.Errorf("source and destination chain are both %d", c.SourceChain)
	}

	return nil
}

// LockRequest is the LockAssets input.
type LockRequest struct {
	Invocator   Address // Invocator pays the locked amount
	Asset       Asset
	Amount      uint64
	Destination Address // Destination is the recipient on the destination chain
}

// LockResult is the LockAssets output.
type LockResult struct {
	Success   bool
	BridgeID  uint64
	Timestamp uint64 // Timestamp is the creation tick
	Reason    Reason
}

// UnlockRequest is the UnlockAssets input.
type UnlockRequest struct {
	Invocator      Address // Invocator receives the released amount
	Asset          Asset
	Amount         uint64
	BridgeID       uint64
	Signatures     []ValidatorSignature
	SignatureCount int // SignatureCount is how many entries of Signatures are used
}

// UnlockResult is the UnlockAssets output.
type UnlockResult struct {
	Success   bool
	Timestamp uint64
	Reason    Reason
}

// BridgeState is the GetBridgeState output.
type BridgeState struct {
	Transaction   Transaction
	Status        Status
	Confirmations uint64
}

// Info summarizes the bridge for monitoring.
type Info struct {
	Stats
	NextID           uint64
	OldestUnresolved uint64
	Unresolved       int
	Capacity         int
	TrackedAssets    int
	Paused           bool
	Validators       int
	Threshold        int
	MinLockAmount    uint64
	MaxLockAmount    uint64
	JournalHealthy   bool
}

// Machine drives bridge transactions through their lifecycle.
// Every operation runs to completion under mu, so two calls never interleave.
type Machine struct {
	mu         sync.Mutex
	cfg        Config
	state      *State
	gateway    Gateway
	validators ValidatorSet
	quorum     *QuorumVerifier
	journal    Journal
	journalErr error // journalErr is the last failed journal commit
}

// Option configures the Machine during creation.
type Option func(*Machine)

// WithJournal persists every committed call through j.
func WithJournal(j Journal) Option {
	return func(m *Machine) {
		m.journal = j
	}
}

// NewMachine creates a state machine owning state.
func NewMachine(cfg Config, state *State, gateway Gateway, validators ValidatorSet, verifier SignatureVerifier, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(validators.Len()); err != nil {
		return nil, fmt.Errorf("invalid bridge config:\n%w", err)
	}

	if state.log.Capacity() != cfg.Limits.MaxTransactions || state.ledger.Capacity() != cfg.Limits.MaxAssets {
		return nil, fmt.Errorf("state capacity %d/%d does not match limits %d/%d",
			state.log.Capacity(), state.ledger.Capacity(), cfg.Limits.MaxTransactions, cfg.Limits.MaxAssets)
	}

	m := &Machine{
		cfg:        cfg,
		state:      state,
		gateway:    gateway,
		validators: validators,
		quorum:     NewQuorumVerifier(verifier, cfg.Limits.MinQuorum),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// LockAssets burns the invocator's amount and records a Pending transaction.
//
// Every fallible step is checked before the burn: the log slot and the ledger
// entry are reserved first, so once the burn succeeds the remaining effects
// cannot fail. If the journal then refuses the record, the burn is refunded.
// The call is not idempotent.
func (m *Machine) LockAssets(req LockRequest) (LockResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var d delta

	id, tick, err := m.lock(req, &d)
	if err != nil {
		logger.Debug("lock rejected",
			"asset", req.Asset.ID,
			"amount", req.Amount,
			"reason", ReasonOf(err).String(),
			"error", err,
		)
		return LockResult{Reason: ReasonOf(err)}, err
	}

	logger.Info("assets locked",
		"id", id,
		"asset", req.Asset.ID,
		"amount", req.Amount,
		"destination", req.Destination.String(),
	)

	return LockResult{Success: true, BridgeID: id, Timestamp: tick}, nil
}

// lock performs LockAssets under the machine lock.
func (m *Machine) lock(req LockRequest, d *delta) (id, tick uint64, err error) {
	if err := m.checkOpen(); err != nil {
		return 0, 0, err
	}

	if err := m.checkLockInput(req); err != nil {
		return 0, 0, err
	}

	if balance := m.gateway.BalanceOf(req.Invocator); balance < req.Amount {
		return 0, 0, fmt.Errorf("%w: balance %d, need %d", ErrInsufficientBalance, balance, req.Amount)
	}

	// Reserve the log slot and ledger entry before any irreversible effect.
	if err := m.state.log.CanAppend(); err != nil {
		return 0, 0, err
	}

	if err := m.state.ledger.CanIncrease(req.Asset, req.Amount); err != nil {
		return 0, 0, err
	}

	if err := m.gateway.Burn(req.Invocator, req.Amount); err != nil {
		return 0, 0, fmt.Errorf("%w: burn %d:\n%w", ErrLedgerGatewayFailure, req.Amount, err)
	}

	tick = m.gateway.CurrentTick()
	sp := m.state.save(m.state.log.NextID(), req.Asset.ID)

	id, err = m.state.log.Append(Transaction{
		Asset:              req.Asset,
		Amount:             req.Amount,
		SourceChain:        m.cfg.SourceChain,
		DestinationChain:   m.cfg.DestinationChain,
		SourceAddress:      req.Invocator,
		DestinationAddress: req.Destination,
		CreatedAtTick:      tick,
		UpdatedAtTick:      tick,
	})
	if err != nil {
		return 0, 0, m.abortLock(req, err)
	}

	if err := m.state.ledger.Increase(req.Asset, req.Amount); err != nil {
		m.state.rewind(sp)
		return 0, 0, m.abortLock(req, err)
	}

	m.state.stats.TotalLocked = addSat(m.state.stats.TotalLocked, req.Amount)
	m.state.stats.TotalTransfers++

	d.touchTx(id)
	d.touchAsset(req.Asset.ID)

	if err := m.commit(d); err != nil {
		m.abort(sp)
		m.refundBurn(req, err)
		return 0, 0, err
	}

	return id, tick, nil
}

// abortLock refunds a burn whose follow-up step failed despite the reservation.
func (m *Machine) abortLock(req LockRequest, cause error) error {
	m.refundBurn(req, cause)
	return fmt.Errorf("%w: post-burn step failed:\n%w", ErrInvariantViolation, cause)
}

// refundBurn returns a burned lock amount to the invocator.
func (m *Machine) refundBurn(req LockRequest, cause error) {
	logger.Error("lock failed after burn, refunding",
		"asset", req.Asset.ID,
		"amount", req.Amount,
		"error", cause,
	)

	if err := m.release(req.Invocator, req.Amount); err != nil {
		logger.Error("lock refund failed", "amount", req.Amount, "error", err)
	}
}

// checkLockInput validates LockAssets arguments.
func (m *Machine) checkLockInput(req LockRequest) error {
	switch {
	case req.Amount == 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case req.Asset.ID == 0:
		return fmt.Errorf("%w: asset id 0 is reserved", ErrInvalidInput)
	case !req.Asset.Kind.Valid():
		return fmt.Errorf("%w: unknown token kind %d", ErrInvalidInput, req.Asset.Kind)
	case req.Destination == Address{}:
		return fmt.Errorf("%w: empty destination address", ErrInvalidInput)
	case req.Amount < m.cfg.MinLockAmount:
		return fmt.Errorf("%w: amount %d below minimum %d", ErrInvalidInput, req.Amount, m.cfg.MinLockAmount)
	case m.cfg.MaxLockAmount != 0 && req.Amount > m.cfg.MaxLockAmount:
		return fmt.Errorf("%w: amount %d above maximum %d", ErrInvalidInput, req.Amount, m.cfg.MaxLockAmount)
	}

	return nil
}

// UnlockAssets releases a Confirmed transaction's amount to the invocator
// once a validator quorum has signed it.
//
// The status check is the only source of exactly-once semantics: the first
// successful call moves the transaction to Completed and every later call
// fails with ErrInvalidState. Completed is journaled before anything is
// minted, so a restart never finds a released transaction still Confirmed.
func (m *Machine) UnlockAssets(req UnlockRequest) (UnlockResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var d delta

	tick, err := m.unlock(req, &d)
	if err != nil {
		logger.Debug("unlock rejected",
			"id", req.BridgeID,
			"reason", ReasonOf(err).String(),
			"error", err,
		)
		return UnlockResult{Reason: ReasonOf(err)}, err
	}

	logger.Info("assets unlocked",
		"id", req.BridgeID,
		"asset", req.Asset.ID,
		"amount", req.Amount,
		"recipient", req.Invocator.String(),
	)

	return UnlockResult{Success: true, Timestamp: tick}, nil
}

// unlock performs UnlockAssets under the machine lock.
func (m *Machine) unlock(req UnlockRequest, d *delta) (uint64, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	if req.SignatureCount < 0 || req.SignatureCount > len(req.Signatures) || req.SignatureCount > m.cfg.Limits.MaxValidators {
		return 0, fmt.Errorf("%w: signature count %d for %d signatures (max %d)",
			ErrInvalidInput, req.SignatureCount, len(req.Signatures), m.cfg.Limits.MaxValidators)
	}

	tx, err := m.state.log.Get(req.BridgeID)
	if err != nil {
		return 0, fmt.Errorf("%w: bridge id %d:\n%w", ErrUnknownTransaction, req.BridgeID, err)
	}

	if tx.ID != req.BridgeID || tx.Status != StatusConfirmed {
		return 0, fmt.Errorf("%w: transaction %d is %s", ErrInvalidState, req.BridgeID, tx.Status)
	}

	if err := checkUnlockMatches(req, &tx); err != nil {
		return 0, err
	}

	result := m.quorum.Check(&tx, req.Signatures[:req.SignatureCount], m.validators, m.cfg.Threshold)
	if !result.Met() {
		return 0, fmt.Errorf("%w: %d valid of %d required (duplicates %d, non-members %d, bad %d)",
			ErrQuorumNotMet, len(result.Counted), result.Threshold,
			result.Duplicates, result.NonMembers, result.BadSignatures)
	}

	if err := m.checkEscrow(&tx); err != nil {
		return 0, err
	}

	tick := m.gateway.CurrentTick()
	sp := m.state.save(tx.ID, tx.Asset.ID)

	m.finish(&tx, StatusCompleted, tick)

	if err := m.state.log.AttachSignatures(tx.ID, result.Counted); err != nil {
		logger.Error("attach signatures failed", "id", tx.ID, "error", err)
	}

	m.state.stats.TotalUnlocked = addSat(m.state.stats.TotalUnlocked, tx.Amount)
	m.state.stats.TotalValidatorActions++

	d.touchTx(tx.ID)
	d.touchAsset(tx.Asset.ID)

	if err := m.commit(d); err != nil {
		m.abort(sp)
		return 0, err
	}

	if err := m.release(req.Invocator, tx.Amount); err != nil {
		m.reopen(sp, d)
		return 0, err
	}

	return tick, nil
}

// checkUnlockMatches rejects a request whose asset, amount or recipient
// differ from what was locked. Amounts are never clamped.
func checkUnlockMatches(req UnlockRequest, tx *Transaction) error {
	if req.Asset != tx.Asset {
		return fmt.Errorf("%w: %s does not match locked %s", ErrInvalidInput, req.Asset, tx.Asset)
	}

	if req.Amount != tx.Amount {
		return fmt.Errorf("%w: amount %d does not match locked amount %d", ErrInvalidInput, req.Amount, tx.Amount)
	}

	if req.Invocator != tx.DestinationAddress {
		return fmt.Errorf("%w: invocator is not the destination address", ErrInvalidInput)
	}

	return nil
}

// Confirm records the external attestation for a Pending transaction.
func (m *Machine) Confirm(id uint64, confirmations uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkJournal(); err != nil {
		return err
	}

	tx, err := m.state.log.Get(id)
	if err != nil {
		return fmt.Errorf("%w: bridge id %d:\n%w", ErrUnknownTransaction, id, err)
	}

	if tx.Status != StatusPending {
		return fmt.Errorf("%w: transaction %d is %s", ErrInvalidState, id, tx.Status)
	}

	sp := m.state.save(id, tx.Asset.ID)

	if err := m.state.log.SetStatus(id, StatusConfirmed, m.gateway.CurrentTick()); err != nil {
		return err
	}

	if err := m.state.log.SetConfirmations(id, confirmations); err != nil {
		m.state.rewind(sp)
		return err
	}

	m.state.stats.TotalValidatorActions++

	d := delta{txIDs: []uint64{id}}
	if err := m.commit(&d); err != nil {
		m.abort(sp)
		return err
	}

	logger.Info("transaction confirmed", "id", id, "confirmations", confirmations)

	return nil
}

// Fail marks a Pending transaction Failed and refunds its locker, so the
// locked value never stays stranded. Failed is journaled before the refund.
func (m *Machine) Fail(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkJournal(); err != nil {
		return err
	}

	tx, err := m.state.log.Get(id)
	if err != nil {
		return fmt.Errorf("%w: bridge id %d:\n%w", ErrUnknownTransaction, id, err)
	}

	if tx.Status != StatusPending {
		return fmt.Errorf("%w: transaction %d is %s", ErrInvalidState, id, tx.Status)
	}

	if err := m.checkEscrow(&tx); err != nil {
		return err
	}

	sp := m.state.save(id, tx.Asset.ID)

	m.finish(&tx, StatusFailed, m.gateway.CurrentTick())

	m.state.stats.TotalRefunded = addSat(m.state.stats.TotalRefunded, tx.Amount)
	m.state.stats.TotalValidatorActions++

	d := delta{txIDs: []uint64{id}, assetIDs: []uint64{tx.Asset.ID}}
	if err := m.commit(&d); err != nil {
		m.abort(sp)
		return err
	}

	if err := m.release(tx.SourceAddress, tx.Amount); err != nil {
		m.reopen(sp, &d)
		return err
	}

	logger.Info("transaction failed, locker refunded",
		"id", id,
		"amount", tx.Amount,
		"locker", tx.SourceAddress.String(),
	)

	return nil
}

// checkEscrow verifies the ledger still covers tx before any gateway effect.
func (m *Machine) checkEscrow(tx *Transaction) error {
	locked := m.state.ledger.TotalLocked(tx.Asset)
	if locked >= tx.Amount {
		return nil
	}

	logger.Error("locked ledger cannot cover transaction",
		"id", tx.ID,
		"asset", tx.Asset.ID,
		"locked", locked,
		"amount", tx.Amount,
	)

	return fmt.Errorf("%w: asset %d has %d locked, transaction %d needs %d",
		ErrInvariantViolation, tx.Asset.ID, locked, tx.ID, tx.Amount)
}

// release mints amount into custody and transfers it to recipient.
func (m *Machine) release(recipient Address, amount uint64) error {
	if err := m.gateway.Mint(amount); err != nil {
		return fmt.Errorf("%w: mint %d:\n%w", ErrLedgerGatewayFailure, amount, err)
	}

	if err := m.gateway.Transfer(recipient, amount); err != nil {
		m.compensateMint(amount)
		return fmt.Errorf("%w: transfer %d:\n%w", ErrLedgerGatewayFailure, amount, err)
	}

	return nil
}

// compensateMint burns back a mint whose transfer failed.
func (m *Machine) compensateMint(amount uint64) {
	if err := m.gateway.Burn(m.cfg.Custody, amount); err != nil {
		logger.Error("mint compensation failed, custody holds surplus",
			"amount", amount,
			"error", err,
		)
	}
}

// finish moves tx to a terminal status and releases its escrow.
// Both steps were checked by the caller, so failures here are bugs.
func (m *Machine) finish(tx *Transaction, status Status, tick uint64) {
	if err := m.state.log.SetStatus(tx.ID, status, tick); err != nil {
		logger.Error("terminal transition rejected after settlement", "id", tx.ID, "error", err)
	}

	if !m.state.ledger.Decrease(tx.Asset, tx.Amount) {
		logger.Error("locked ledger underflow",
			"id", tx.ID,
			"asset", tx.Asset.ID,
			"amount", tx.Amount,
		)
	}
}

// Pause stops LockAssets and UnlockAssets until Unpause. Queries keep working.
func (m *Machine) Pause() error {
	return m.setPaused(true)
}

// Unpause lifts the emergency pause. After a journal failure it is also how
// an operator resumes: the bridge reopens only if the pause change commits.
func (m *Machine) Unpause() error {
	return m.setPaused(false)
}

// setPaused flips the pause flag and journals the change.
func (m *Machine) setPaused(paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.paused == paused && m.journalErr == nil {
		return nil
	}

	sp := m.state.save(0, 0)
	m.state.paused = paused

	var d delta
	if err := m.commit(&d); err != nil {
		m.abort(sp)
		return err
	}

	logger.Warn("bridge pause changed", "paused", paused)

	return nil
}

// checkOpen rejects LockAssets and UnlockAssets while paused or while the
// journal is failing.
func (m *Machine) checkOpen() error {
	if err := m.checkJournal(); err != nil {
		return err
	}

	if m.state.paused {
		return ErrPaused
	}

	return nil
}

// checkJournal rejects state changes after a failed journal commit.
func (m *Machine) checkJournal() error {
	if m.journalErr != nil {
		return fmt.Errorf("%w: last journal commit failed:\n%w", ErrStorageFailure, m.journalErr)
	}

	return nil
}

// GetBridgeState returns a transaction and its status.
func (m *Machine) GetBridgeState(id uint64) (BridgeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.state.log.Get(id)
	if err != nil {
		return BridgeState{}, fmt.Errorf("%w: bridge id %d:\n%w", ErrUnknownTransaction, id, err)
	}

	return BridgeState{Transaction: tx, Status: tx.Status, Confirmations: tx.Confirmations}, nil
}

// GetTotalLocked returns the amount of asset currently in escrow.
func (m *Machine) GetTotalLocked(asset Asset) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.ledger.TotalLocked(asset)
}

// TotalLockedByID returns the escrowed amount for an asset ID.
func (m *Machine) TotalLockedByID(id uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.ledger.lockedByID(id)
}

// Info returns counters and configuration for monitoring.
func (m *Machine) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Info{
		Stats:            m.state.stats,
		NextID:           m.state.log.NextID(),
		OldestUnresolved: m.state.log.OldestUnresolved(),
		Unresolved:       m.state.log.Unresolved(),
		Capacity:         m.state.log.Capacity(),
		TrackedAssets:    m.state.ledger.Len(),
		Paused:           m.state.paused,
		Validators:       m.validators.Len(),
		Threshold:        m.cfg.Threshold,
		MinLockAmount:    m.cfg.MinLockAmount,
		MaxLockAmount:    m.cfg.MaxLockAmount,
		JournalHealthy:   m.journalErr == nil,
	}
}

// Threshold returns the quorum size M.
func (m *Machine) Threshold() int {
	return m.cfg.Threshold
}

// Image returns a full copy of the state for snapshots.
func (m *Machine) Image() Image {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Image()
}

// commit hands the touched entries to the journal.
func (m *Machine) commit(d *delta) error {
	if m.journal == nil {
		return nil
	}

	if err := m.journal.Commit(d.image(m.state)); err != nil {
		m.journalErr = err
		logger.Error("journal commit failed", "error", err)
		return fmt.Errorf("%w:\n%w", ErrStorageFailure, err)
	}

	m.journalErr = nil

	return nil
}

// abort undoes a call whose journal commit failed and pauses the bridge.
func (m *Machine) abort(sp savepoint) {
	m.state.rewind(sp)
	m.state.paused = true

	logger.Error("bridge paused after journal failure, unpause once storage recovers")
}

// reopen undoes a journaled settlement whose gateway effect failed. If the
// undo cannot be journaled either, the stored record stays settled with no
// value moved and the bridge pauses.
func (m *Machine) reopen(sp savepoint, d *delta) {
	m.state.rewind(sp)

	if err := m.commit(d); err != nil {
		m.state.paused = true
		logger.Error("settled transaction could not be reopened in the journal",
			"ids", d.txIDs,
			"error", err,
		)
	}
}

// addSat adds without wrapping.
func addSat(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}

	return a + b
}
