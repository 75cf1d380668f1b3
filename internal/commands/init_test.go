package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "asientos-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "asientos")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/asientos")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runAsientos(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "ASIENTOS_LOG_LEVEL=warn")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// initLedger creates a ledger in a temp dir and returns its config path.
func initLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runAsientos(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err, out)
	return filepath.Join(dir, "asientos.yaml")
}

func TestInit_CreatesLedger(t *testing.T) {
	dir := t.TempDir()
	out, err := runAsientos(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Initialized ledger for Test Biz")
	assert.Contains(t, out, "25 accounts")

	_, err = os.Stat(filepath.Join(dir, "data", "asientos.db"))
	require.NoError(t, err, "database should exist")
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runAsientos(t, "init", dir, "--name", "My Company")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "asientos.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: My Company")
	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "period: yearly")
	assert.Contains(t, contents, `tolerance: "0.01"`)
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runAsientos(t, "init", dir)
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingLedger(t *testing.T) {
	cfg := initLedger(t)
	out, err := runAsientos(t, "init", filepath.Dir(cfg), "--name", "Again")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := initLedger(t)
	out, err := runAsientos(t, "migrate", "--config", cfg)
	require.NoError(t, err, out)
	assert.Contains(t, out, "up to date")
}

func TestVersion(t *testing.T) {
	out, err := runAsientos(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:")
}
