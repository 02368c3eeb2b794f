package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itchan-dev/newsletter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	public := `
application:
  base_url: http://localhost:8000
storage:
  driver: ` + driver + `
email:
  transport: memory
  sender_email: newsletter@example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte("pg: {}\n"), 0o600))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUsersAddRejectsMemoryDriver(t *testing.T) {
	dir := writeConfig(t, "memory")
	_, err := run(t, "", "--config_folder", dir, "users", "add", "--username", "admin", "--password", "pw")
	assert.ErrorContains(t, err, "memory driver")
}

func TestUsersAddRequiresFlags(t *testing.T) {
	dir := writeConfig(t, "memory")
	_, err := run(t, "", "--config_folder", dir, "users", "add")
	assert.ErrorContains(t, err, "--username and --password are required")
}

func TestMigrateRejectsMemoryDriver(t *testing.T) {
	dir := writeConfig(t, "memory")
	_, err := run(t, "", "--config_folder", dir, "migrate")
	assert.ErrorContains(t, err, "postgres")
}

func TestMissingConfigFolder(t *testing.T) {
	_, err := run(t, "", "--config_folder", filepath.Join(t.TempDir(), "nope"), "migrate")
	assert.ErrorContains(t, err, "config file does not exist")
}

func TestPublishCommand(t *testing.T) {
	var got struct {
		auth string
		body map[string]string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/newsletter", r.URL.Path)
		got.auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.DeliveryReport{Recipients: 3, Delivered: 3, Failures: []domain.DeliveryFailure{}})
	}))
	t.Cleanup(srv.Close)

	// publish must work without a config folder
	out, err := run(t, "# Hello", "--config_folder", t.TempDir(), "publish",
		"--url", srv.URL, "--username", "admin", "--password", "pw", "--subject", "Issue 1")
	require.NoError(t, err)

	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:pw")), got.auth)
	assert.Equal(t, "Issue 1", got.body["subject"])
	assert.Equal(t, "# Hello", got.body["content"])
	assert.Equal(t, "markdown", got.body["format"])

	var report domain.DeliveryReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Delivered)
}

func TestPublishCommandPartialDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(domain.DeliveryReport{
			Recipients: 2,
			Delivered:  1,
			Failures:   []domain.DeliveryFailure{{Email: "b***@example.com", Error: "rejected"}},
		})
	}))
	t.Cleanup(srv.Close)

	content := filepath.Join(t.TempDir(), "issue.html")
	require.NoError(t, os.WriteFile(content, []byte("<p>hi</p>"), 0o600))

	out, err := run(t, "", "publish", "--url", srv.URL, "--username", "admin", "--password", "pw",
		"--subject", "s", "--file", content, "--format", "html")
	assert.ErrorContains(t, err, "1 of 2 deliveries failed")
	assert.Contains(t, out, `"delivered": 1`)
}

func TestPublishCommandRequiresCredentials(t *testing.T) {
	t.Setenv("NEWSLETTER_OPERATOR_PASSWORD", "")
	_, err := run(t, "", "publish", "--subject", "s", "--username", "")
	assert.ErrorContains(t, err, "--username and --password")
}
