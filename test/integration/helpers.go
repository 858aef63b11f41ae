package integration

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"QuantumLink/client"
	"QuantumLink/internal/attestation"
	"QuantumLink/internal/bridge"
	"QuantumLink/internal/config"
	"QuantumLink/internal/validator"
)

// safeBuffer wraps bytes.Buffer with a mutex for concurrent read/write.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends data to the buffer (implements io.Writer).
func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.Write(p)
}

// String returns the buffer contents as a string.
func (sb *safeBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.String()
}

// Validator is a validator identity known to the test.
type Validator struct {
	Wallet *client.Wallet       // Wallet signs unlock authorizations
	BLS    *attestation.KeyPair // BLS signs attestation votes
	priv   ed25519.PrivateKey   // priv is the ed25519 identity key
}

// Sign returns the validator's unlock signature on tx.
func (v *Validator) Sign(tx *bridge.Transaction) bridge.ValidatorSignature {
	return validator.Sign(v.priv, tx)
}

// Vote returns the validator's confirm vote on tx.
func (v *Validator) Vote(tx *bridge.Transaction, confirmations uint64) attestation.Vote {
	return attestation.Vote{
		BridgeID:      tx.ID,
		Verdict:       attestation.VerdictConfirm,
		Confirmations: confirmations,
		Signer:        bridge.PublicKey(v.Wallet.Address()),
		Signature:     v.BLS.Sign(attestation.Message(tx, attestation.VerdictConfirm, confirmations)),
	}
}

// Node represents a running bridged process.
type Node struct {
	t          *testing.T         // t is the test context
	binaryPath string             // binaryPath is the compiled daemon
	configPath string             // configPath is the TOML file passed with -config
	httpAddr   string             // httpAddr is the HTTP API address
	dataDir    string             // dataDir is the node's data directory
	cmd        *exec.Cmd          // cmd is the running process
	done       chan struct{}      // done is closed when the process exits
	stdout     *safeBuffer        // stdout captures process output
	stderr     *safeBuffer        // stderr captures process errors
	cancel     context.CancelFunc // cancel stops the process
	Validators []*Validator       // Validators are the configured set members
	Admin      *client.Wallet     // Admin may pause and unpause the bridge
	Funded     *client.Wallet     // Funded holds the genesis balance
}

// StartNode builds the daemon, writes a config with the given validator count
// and genesis balance, and starts the process.
func StartNode(t *testing.T, validators int, balance uint64) *Node {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dir := t.TempDir()

	n := &Node{
		t:          t,
		binaryPath: buildBinary(t),
		configPath: filepath.Join(dir, "bridge.toml"),
		httpAddr:   freeAddr(t),
		dataDir:    filepath.Join(dir, "data"),
		Admin:      client.NewWallet(),
		Funded:     client.NewWallet(),
	}

	for i := 0; i < validators; i++ {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatalf("generate validator key: %v", err)
		}

		kp, err := attestation.DeriveFromED25519(priv)
		if err != nil {
			t.Fatalf("derive bls key: %v", err)
		}

		n.Validators = append(n.Validators, &Validator{Wallet: client.WalletFromKey(priv), BLS: kp, priv: priv})
	}

	n.writeConfig(balance)
	n.Start()
	t.Cleanup(n.Stop)

	return n
}

// writeConfig encodes the node configuration as TOML.
func (n *Node) writeConfig(balance uint64) {
	n.t.Helper()

	cfg := config.Default()
	cfg.Node.DataPath = n.dataDir
	cfg.Node.SnapshotDir = filepath.Join(n.dataDir, "snapshots")
	cfg.Node.HTTPAddress = n.httpAddr
	cfg.Node.KeyPath = filepath.Join(n.dataDir, "key")
	cfg.Node.TickInterval = config.Duration{Duration: 100 * time.Millisecond}
	cfg.Bridge.Custody = hex.EncodeToString(bytes.Repeat([]byte{0xCC}, bridge.AddressSize))
	cfg.Bridge.Admin = n.Admin.Address().String()

	for _, v := range n.Validators {
		pk := v.BLS.PublicKey()
		cfg.Validators = append(cfg.Validators, config.ValidatorConfig{
			Key: v.Wallet.Address().String(),
			BLS: hex.EncodeToString(pk[:]),
		})
	}

	cfg.Genesis = []config.BalanceConfig{{Address: n.Funded.Address().String(), Amount: balance}}

	f, err := os.Create(n.configPath)
	if err != nil {
		n.t.Fatalf("create config: %v", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		n.t.Fatalf("encode config: %v", err)
	}
}

// Start launches the process and waits until the API answers.
func (n *Node) Start() {
	n.t.Helper()

	if err := os.MkdirAll(n.dataDir, 0755); err != nil {
		n.t.Fatalf("create data dir: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.stdout = &safeBuffer{}
	n.stderr = &safeBuffer{}
	n.done = make(chan struct{})

	n.cmd = exec.CommandContext(ctx, n.binaryPath, "-config", n.configPath)
	n.cmd.Stdout = n.stdout
	n.cmd.Stderr = n.stderr

	if err := n.cmd.Start(); err != nil {
		n.t.Fatalf("start node: %v", err)
	}

	// Wait in background so ProcessState gets set when the process exits.
	go func() {
		n.cmd.Wait()
		close(n.done)
	}()

	n.waitHealthy(15 * time.Second)
}

// waitHealthy polls /health until it answers or the process dies.
func (n *Node) waitHealthy(timeout time.Duration) {
	n.t.Helper()

	c := n.Client()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-n.done:
			n.t.Fatalf("node exited:\nSTDOUT:\n%s\nSTDERR:\n%s", n.stdout.String(), n.stderr.String())
		default:
		}

		if err := c.Health(); err == nil && n.IsRunning() {
			return
		}

		time.Sleep(100 * time.Millisecond)
	}

	n.t.Fatalf("node not healthy:\nSTDOUT:\n%s\nSTDERR:\n%s", n.stdout.String(), n.stderr.String())
}

// IsRunning checks if the node process is alive and started successfully.
func (n *Node) IsRunning() bool {
	if n.cmd == nil || n.cmd.Process == nil {
		return false
	}

	select {
	case <-n.done:
		return false
	default:
	}

	return strings.Contains(n.stdout.String(), "starting QuantumLink bridge")
}

// LogContains checks if the node's logs contain a substring.
func (n *Node) LogContains(s string) bool {
	return strings.Contains(n.stdout.String(), s)
}

// Restart stops the process gracefully and starts it again on the same data.
func (n *Node) Restart() {
	n.t.Helper()

	n.Stop()
	n.Start()
}

// Stop interrupts the process and waits for it to exit, killing it after a grace period.
func (n *Node) Stop() {
	if n.cmd == nil || n.cmd.Process == nil {
		return
	}

	select {
	case <-n.done:
		return
	default:
	}

	n.cmd.Process.Signal(os.Interrupt)

	select {
	case <-n.done:
	case <-time.After(10 * time.Second):
		n.cancel()
		<-n.done
	}
}

// Client creates a client.Client connected to the node.
func (n *Node) Client() *client.Client {
	return client.NewClient(n.httpAddr)
}

// freeAddr reserves a loopback port and releases it for the daemon.
func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer l.Close()

	return l.Addr().String()
}

// buildBinary compiles cmd/bridged into a temp file.
func buildBinary(t *testing.T) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "bridged_test_*")
	if err != nil {
		t.Fatalf("create temp binary file: %v", err)
	}

	binary := tmpFile.Name()
	tmpFile.Close()

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/bridged")
	cmd.Dir = getProjectRoot(t)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, output)
	}

	t.Cleanup(func() { os.Remove(binary) })

	return binary
}

// getProjectRoot returns the project root directory (containing go.mod).
func getProjectRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}

	dir := wd
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find project root from %s", wd)

	return ""
}
