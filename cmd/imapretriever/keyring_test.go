package main

import (
	"strconv"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"github.com/nalgeon/be"

	"github.com/spachava753/imapretriever/imaptest"
	"github.com/spachava753/imapretriever/internal/config"
	"github.com/spachava753/imapretriever/internal/credential"
)

func useFileKeyring(t *testing.T) *credential.Store {
	t.Helper()
	store, err := credential.Open(credential.Options{
		Service:      "imapretriever-test",
		Backends:     []keyring.BackendType{keyring.FileBackend},
		FileDir:      t.TempDir(),
		FilePassword: "test-key",
	})
	be.Err(t, err, nil)

	prevStore, prevSecrets := openStore, config.OpenSecrets
	openStore = func(string) (secretStore, error) { return store, nil }
	config.OpenSecrets = func(string) (config.SecretStore, error) { return store, nil }
	t.Cleanup(func() {
		openStore, config.OpenSecrets = prevStore, prevSecrets
	})
	return store
}

func TestKeyringSetThenRetrieve(t *testing.T) {
	store := useFileKeyring(t)
	srv := imaptest.Start(t, imaptest.Options{Security: imaptest.SecurityTLS})
	be.Err(t, srv.LoadMboxFile("../../retriever/testdata/inbox.mbox"), nil)

	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(srv.Password + "\n"))
	cmd.SetArgs([]string{"keyring", "set", "--host", srv.Host, "--user", srv.Username, "--keyring-service", "imapretriever-test"})
	be.Err(t, cmd.Execute(), nil)
	be.True(t, strings.Contains(out.String(), "stored password for "+srv.Username+"@"+srv.Host))

	got, err := store.Get(credential.Key(srv.Username, srv.Host))
	be.Err(t, err, nil)
	be.Equal(t, got, srv.Password)

	text, err := runCLI(t,
		"--host", srv.Host,
		"--port", strconv.Itoa(srv.Port),
		"--user", srv.Username,
		"--keyring-service", "imapretriever-test",
		"--verify-cert=false",
		"--timeout", "5s",
		"--log-level", "error",
		`FROM "alice@example.com"`,
	)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(text, "Subject: Team Meeting Notes"))
}

func TestKeyringDelete(t *testing.T) {
	store := useFileKeyring(t)
	key := credential.Key("me", "imap.example.com")
	be.Err(t, store.Set(key, "old"), nil)

	_, err := runCLI(t, "keyring", "delete", "--host", "imap.example.com", "--user", "me")
	be.Err(t, err, nil)
	_, err = store.Get(key)
	be.Err(t, err, credential.ErrNotFound)

	_, err = runCLI(t, "keyring", "delete", "--host", "imap.example.com", "--user", "me")
	be.Err(t, err, credential.ErrNotFound)
}

func TestKeyringSetValidation(t *testing.T) {
	useFileKeyring(t)

	_, err := runCLI(t, "keyring", "set", "--user", "me")
	be.Err(t, err, "--host and --user are required")

	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"keyring", "set", "--host", "h", "--user", "me"})
	be.Err(t, cmd.Execute(), "reading password from stdin")
}
