package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battleship-server/internal/api"
	"github.com/mcoot/battleship-server/internal/factory"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/testutil"
)

const adminToken = "e2e-admin-token"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	addr       string
	adminURL   string
}

func newCLIRunner(t *testing.T, env *testEnv) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "bsctl")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/bsctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		addr:       env.addr,
		adminURL:   env.adminURL,
	}
}

func (r *cliRunner) command(user, pass string, args ...string) *exec.Cmd {
	fullArgs := append([]string{
		"--addr", r.addr,
		"--admin-url", r.adminURL,
		"--admin-token", adminToken,
		"--output", "json",
	}, args...)
	if user != "" {
		fullArgs = append(fullArgs, "--user", user, "--pass", pass)
	}

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = []string{"HOME=" + os.TempDir()}
	return cmd
}

func (r *cliRunner) run(user, pass string, args ...string) (string, error) {
	output, err := r.command(user, pass, args...).CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testEnv runs the game server and the admin API on ephemeral ports
type testEnv struct {
	app      *factory.TestApp
	addr     string
	adminURL string
}

func startTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	app := factory.NewTestApp()
	require.NoError(t, app.Start(ctx))

	admin := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:   testutil.NopLogger(),
		Registry: app.Registry,
		Storage:  app.Storage,
		Stats:    app.Stats,
		Token:    adminToken,
	}))

	t.Cleanup(func() {
		admin.Close()
		cancel()
		_ = app.Close()
	})

	return &testEnv{
		app:      app,
		addr:     app.Server.Addr().String(),
		adminURL: admin.URL,
	}
}

// decodeAll reads every JSON document the CLI printed
func decodeAll(t *testing.T, output string) []map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(output))
	var docs []map[string]any
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if err == io.EOF {
			return docs
		}
		require.NoError(t, err, "output: %s", output)
		docs = append(docs, doc)
	}
}

func userID(t *testing.T, env *testEnv, username string) model.UserID {
	t.Helper()
	user, err := env.app.Storage.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	return user.ID
}

func TestCLI_PingAndHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	env := startTestEnv(t)
	cli := newCLIRunner(t, env)

	output, err := cli.run("", "", "ping")
	require.NoError(t, err, output)
	docs := decodeAll(t, output)
	require.Len(t, docs, 1)
	assert.Equal(t, env.addr, docs[0]["addr"])

	output, err = cli.run("", "", "health")
	require.NoError(t, err, output)
	assert.Equal(t, "ok", decodeAll(t, output)[0]["status"])
}

func TestCLI_PlayerCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	env := startTestEnv(t)
	cli := newCLIRunner(t, env)

	output, err := cli.run("alice", "secret1", "register", "--name", "Alice")
	require.NoError(t, err, output)
	registered := decodeAll(t, output)[0]
	assert.Equal(t, "Alice", registered["display_name"])
	assert.EqualValues(t, model.DefaultEloRating, registered["elo_rating"])

	output, err = cli.run("alice", "secret1", "login")
	require.NoError(t, err, output)
	assert.Equal(t, registered["user_id"], decodeAll(t, output)[0]["user_id"])

	// the session ended with the command
	assert.Eventually(t, func() bool { return env.app.Registry.Count() == 0 }, 2*time.Second, 20*time.Millisecond)

	output, err = cli.run("alice", "secret1", "players")
	require.NoError(t, err, output)
	assert.Contains(t, output, `"username": "alice"`)
}

func TestCLI_ChallengeFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	env := startTestEnv(t)
	cli := newCLIRunner(t, env)

	for _, name := range []string{"alice", "bob"} {
		output, err := cli.run(name, "secret1", "register")
		require.NoError(t, err, output)
	}
	bob := userID(t, env, "bob")

	var accepted bytes.Buffer
	acceptCmd := cli.command("bob", "secret1", "accept", "--wait", "10s")
	acceptCmd.Stdout = &accepted
	acceptCmd.Stderr = &accepted
	require.NoError(t, acceptCmd.Start())

	require.Eventually(t, func() bool { return env.app.Registry.IsOnline(bob) }, 5*time.Second, 20*time.Millisecond)

	output, err := cli.run("alice", "secret1", "challenge", strconv.FormatUint(uint64(bob), 10), "--time", "120", "--wait", "10s")
	require.NoError(t, err, output)

	docs := decodeAll(t, output)
	require.Len(t, docs, 2)
	assert.Equal(t, true, docs[0]["success"])
	assert.Equal(t, "bob", docs[1]["opponent"])
	assert.EqualValues(t, 120, docs[1]["time_limit"])

	require.NoError(t, acceptCmd.Wait(), accepted.String())
	bobDocs := decodeAll(t, accepted.String())
	require.Len(t, bobDocs, 2)
	assert.Equal(t, "alice", bobDocs[0]["challenger"])
	assert.Equal(t, docs[1]["match_id"], bobDocs[1]["match_id"])

	assert.Len(t, env.app.MockPublisher.Events(), 1)
}

func TestCLI_Stats(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	env := startTestEnv(t)
	cli := newCLIRunner(t, env)

	output, err := cli.run("", "", "stats")
	require.NoError(t, err, output)
	stats := decodeAll(t, output)[0]
	assert.EqualValues(t, 0, stats["online_players"])
	assert.EqualValues(t, 0, stats["matches_created"])

	output, err = cli.run("", "", "stats", "--admin-token", "wrong")
	assert.Error(t, err)
	assert.Contains(t, output, "UNAUTHORIZED")
}

func TestCLI_ErrorHandling(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	env := startTestEnv(t)
	cli := newCLIRunner(t, env)

	output, err := cli.run("alice", "secret1", "register")
	require.NoError(t, err, output)

	output, err = cli.run("alice", "wrong-password", "login")
	assert.Error(t, err)
	assert.Contains(t, output, "invalid username or password")

	output, err = cli.run("alice", "secret1", "register")
	assert.Error(t, err)
	assert.Contains(t, output, "already exists")

	alice := userID(t, env, "alice")
	output, err = cli.run("alice", "secret1", "challenge", strconv.FormatUint(uint64(alice), 10), "--no-wait")
	assert.Error(t, err)
	assert.Contains(t, output, "cannot challenge yourself")

	_, err = cli.run("", "", "players")
	assert.Error(t, err)
}
