package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"QuantumLink/internal/api"
	"QuantumLink/internal/attestation"
	"QuantumLink/internal/bridge"
	"QuantumLink/internal/config"
	"QuantumLink/internal/ledger"
	"QuantumLink/internal/logger"
	"QuantumLink/internal/snapshot"
	"QuantumLink/internal/storage"
	"QuantumLink/internal/store"
	"QuantumLink/internal/validator"
)

// Node represents a running bridge daemon.
type Node struct {
	cfg        *config.Config
	storage    *storage.Storage
	ledger     *ledger.Ledger
	journal    *store.Journal
	state      *bridge.State
	validators *validator.Set
	machine    *bridge.Machine
	processor  *attestation.Processor
	votes      *attestation.Pool
	snapshots  *snapshot.Manager // snapshots is nil when the interval is zero
	api        *api.Server

	stopTicks chan struct{}
	wg        sync.WaitGroup
}

// NewNode creates and initializes a new node.
func NewNode(cfg *config.Config) (*Node, error) {
	n := &Node{cfg: cfg, stopTicks: make(chan struct{})}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	steps := []func() error{n.initLedger, n.initState, n.initBridge}
	for _, step := range steps {
		if err := step(); err != nil {
			n.Close()
			return nil, err
		}
	}

	return n, nil
}

// initStorage initializes the Pebble storage.
func (n *Node) initStorage() error {
	dbPath := filepath.Join(n.cfg.Node.DataPath, "db")

	if err := os.MkdirAll(n.cfg.Node.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(dbPath)
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	return nil
}

// initLedger opens the host ledger and credits genesis balances on first start.
func (n *Node) initLedger() error {
	bc, err := n.cfg.BridgeConfig(0)
	if err != nil {
		return err
	}

	l, err := ledger.New(n.storage, bc.Custody)
	if err != nil {
		return fmt.Errorf("init ledger:\n%w", err)
	}

	balances, err := n.cfg.GenesisBalances()
	if err != nil {
		return err
	}

	applied, err := l.Genesis(balances)
	if err != nil {
		return fmt.Errorf("apply genesis:\n%w", err)
	}

	if applied {
		logger.Info("genesis balances credited", "accounts", len(balances))
	}

	n.ledger = l

	return nil
}

// initState restores bridge state from the journal, falling back to the
// latest snapshot file when the journal is empty.
func (n *Node) initState() error {
	limits := n.cfg.Limits()
	n.journal = store.New(n.storage, limits.MaxTransactions, n.cfg.Node.Durable)

	img, found, err := n.journal.Image()
	if err != nil {
		return fmt.Errorf("read journal:\n%w", err)
	}

	if found {
		n.state, err = bridge.RestoreState(limits, img)
		if err != nil {
			return fmt.Errorf("restore journal state:\n%w", err)
		}

		logger.Info("state restored from journal", "nextID", img.Meta.NextID, "records", len(img.Transactions))

		return nil
	}

	data, err := snapshot.LoadFile(n.cfg.Node.SnapshotDir)
	if err != nil {
		return err
	}

	if data == nil {
		n.state = bridge.NewState(limits)
		return nil
	}

	state, tick, err := snapshot.Restore(data, limits)
	if err != nil {
		return fmt.Errorf("restore snapshot:\n%w", err)
	}

	if err := n.journal.Reset(state.Image()); err != nil {
		return fmt.Errorf("seed journal from snapshot:\n%w", err)
	}

	n.state = state

	logger.Info("state restored from snapshot", "tick", tick, "nextID", state.Image().Meta.NextID)

	return nil
}

// initBridge builds the validator set, the state machine and the attestation path.
func (n *Node) initBridge() error {
	members, err := n.cfg.Members()
	if err != nil {
		return err
	}

	n.validators, err = validator.NewSet(members, n.cfg.Bridge.MaxValidators)
	if err != nil {
		return fmt.Errorf("build validator set:\n%w", err)
	}

	bc, err := n.cfg.BridgeConfig(n.validators.SuggestedThreshold())
	if err != nil {
		return err
	}

	n.machine, err = bridge.NewMachine(bc, n.state, n.ledger, n.validators, validator.Ed25519Verifier{},
		bridge.WithJournal(n.journal))
	if err != nil {
		return fmt.Errorf("create state machine:\n%w", err)
	}

	n.processor = attestation.NewProcessor(n.validators, bc.Threshold, n.machine)
	n.votes = attestation.NewPool(n.processor, n.cfg.Node.VotePoolLimit)

	return nil
}

// Run starts the node and blocks until shutdown signal.
func (n *Node) Run() error {
	if err := n.Start(); err != nil {
		return err
	}

	return n.waitForShutdown()
}

// Start launches the tick loop, the snapshot manager and the HTTP API.
func (n *Node) Start() error {
	opts := []api.Option{api.WithAttestation(n.processor, n.votes)}

	if n.cfg.Node.SnapshotInterval.Duration > 0 {
		if err := os.MkdirAll(n.cfg.Node.SnapshotDir, 0755); err != nil {
			return fmt.Errorf("create snapshot directory:\n%w", err)
		}

		n.snapshots = snapshot.NewManager(n.machine, n.ledger,
			snapshot.WithInterval(n.cfg.Node.SnapshotInterval.Duration),
			snapshot.WithDir(n.cfg.Node.SnapshotDir),
		)
		n.snapshots.Start()

		opts = append(opts, api.WithSnapshots(n.snapshots))
	}

	admin, ok, err := n.cfg.AdminKey()
	if err != nil {
		return err
	}

	if ok {
		opts = append(opts, api.WithAdmin(admin))
	}

	n.wg.Add(1)
	go n.tickLoop(n.cfg.Node.TickInterval.Duration)

	n.api = api.New(n.cfg.Node.HTTPAddress, n.machine, opts...)
	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return nil
}

// tickLoop advances the host ledger tick every interval.
func (n *Node) tickLoop(interval time.Duration) {
	defer n.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopTicks:
			return
		case <-ticker.C:
			if _, err := n.ledger.Advance(); err != nil {
				logger.Error("advance tick", "error", err)
			}
		}
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
		n.api = nil
	}

	select {
	case <-n.stopTicks:
	default:
		close(n.stopTicks)
	}
	n.wg.Wait()

	if n.snapshots != nil {
		n.snapshots.Stop()
		n.snapshots = nil
	}

	if n.machine != nil && !n.machine.Info().JournalHealthy {
		logger.Warn("closing with an unhealthy journal, the next start restores the last committed state")
	}

	if n.storage != nil {
		err := n.storage.Close()
		n.storage = nil

		return err
	}

	return nil
}
