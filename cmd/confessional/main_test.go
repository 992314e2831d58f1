package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/confessional/internal/client"
	"github.com/alphabot-ai/confessional/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Admin.Password = "hunter2"
	cfg.Store.Name = strings.NewReplacer("/", "_").Replace(t.Name())
	return cfg
}

func startServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	srv, err := newServer(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.store.Close()
	})
	return ts
}

func health(t *testing.T, ts *httptest.Server) map[string]string {
	t.Helper()
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestNewServerDrivers(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Store.Driver = driver
			ts := startServer(t, cfg)

			c := client.New(ts.URL)
			msg, err := c.PostMessage(context.Background(), client.Post{Text: "hello from " + driver})
			require.NoError(t, err)
			got, err := c.Message(context.Background(), msg.ID)
			require.NoError(t, err)
			assert.Equal(t, "hello from "+driver, got.Text)
		})
	}
}

func TestNewServerClassifierToggle(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, "disabled", health(t, startServer(t, cfg))["classifier"])

	cfg = testConfig(t)
	cfg.Classifier.Enabled = true
	cfg.Classifier.URL = "http://127.0.0.1:1"
	srv, err := newServer(cfg)
	require.NoError(t, err)
	defer srv.store.Close()
	require.NotNil(t, srv.classifier)
	assert.False(t, srv.classifier.Available())
}

func TestNewServerExtraTerms(t *testing.T) {
	cfg := testConfig(t)
	terms := filepath.Join(t.TempDir(), "terms.yaml")
	require.NoError(t, os.WriteFile(terms, []byte("banned_terms: [rutabaga]\n"), 0o600))
	cfg.Moderation.TermsFile = terms
	cfg.Moderation.ExtraTerms = []string{"turnip"}
	c := client.New(startServer(t, cfg).URL)

	for _, text := range []string{"I hate RUTABAGA", "turnips are fine"} {
		_, err := c.PostMessage(context.Background(), client.Post{Text: text})
		assert.True(t, client.IsStatus(err, http.StatusBadRequest), text)
	}
	_, err := c.PostMessage(context.Background(), client.Post{Text: "carrots are fine"})
	assert.NoError(t, err)
}

func TestNewServerRejectsBadTermsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Moderation.TermsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := newServer(cfg)
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := loadSession()
	assert.Error(t, err)
	require.NoError(t, saveSession(session{BaseURL: "http://board", Token: "tok"}))

	s, err := loadSession()
	require.NoError(t, err)
	assert.Equal(t, session{BaseURL: "http://board", Token: "tok"}, s)

	info, err := os.Stat(sessionPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = adminClient("http://elsewhere")
	assert.Error(t, err)
	c, err := adminClient("http://board/")
	require.NoError(t, err)
	assert.Equal(t, "tok", c.Token)

	require.NoError(t, clearSession())
	require.NoError(t, clearSession())
	_, err = adminClient("http://board")
	assert.Error(t, err)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"confessional"}, args...))
	return out.String(), err
}

func TestCLIAgainstServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ts := startServer(t, testConfig(t))

	out, err := runCLI(t, "--url", ts.URL, "post", "--category", "confessions", "I", "ate", "the", "last", "cookie")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted message")

	msgs, err := client.New(ts.URL).Messages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	id := strconv.FormatInt(msgs[0].ID, 10)
	assert.Equal(t, "I ate the last cookie", msgs[0].Text)

	out, err = runCLI(t, "--url", ts.URL, "read")
	require.NoError(t, err)
	assert.Contains(t, out, "I ate the last cookie")
	assert.Contains(t, out, "confessions")

	out, err = runCLI(t, "--url", ts.URL, "like", id)
	require.NoError(t, err)
	assert.Contains(t, out, "now has 1 likes")

	_, err = runCLI(t, "--url", ts.URL, "report", "--reason", "greedy", id)
	require.NoError(t, err)

	_, err = runCLI(t, "--url", ts.URL, "reports")
	assert.ErrorContains(t, err, "not logged in")

	_, err = runCLI(t, "--url", ts.URL, "login", "--password", "wrong")
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))

	_, err = runCLI(t, "--url", ts.URL, "login", "--password", "hunter2")
	require.NoError(t, err)

	out, err = runCLI(t, "--url", ts.URL, "reports")
	require.NoError(t, err)
	assert.Contains(t, out, "greedy")

	out, err = runCLI(t, "--url", ts.URL, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted message "+id)

	_, err = runCLI(t, "--url", ts.URL, "logout")
	require.NoError(t, err)
	_, err = os.Stat(sessionPath())
	assert.True(t, os.IsNotExist(err))

	_, err = runCLI(t, "--url", ts.URL, "delete", "abc")
	assert.ErrorContains(t, err, "expected a message id")
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := runCLI(t, "hash-password", "s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "$2"))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t c", 10))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
}
