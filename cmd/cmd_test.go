package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sidereusnuntius/wikifront/internal/apitest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAccountCommands(t *testing.T) {
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("galileo", "sidereus-nuncius", "moderator")

	t.Setenv("WIKIFRONT_STORAGE_BACKEND", "file")
	t.Setenv("WIKIFRONT_FS_ROOT", t.TempDir())
	api := "--api-url=" + srv.APIURL()

	steps := []struct {
		args     []string
		expected string
		fails    bool
	}{
		{args: []string{"whoami", api}, expected: "Not logged in.\n"},
		{args: []string{"login", api, "-u", "galileo", "-p", "wrong-password"}, fails: true},
		{args: []string{"login", api, "-u", "galileo", "-p", "sidereus-nuncius"}, expected: "Logged in as galileo.\n"},
		{args: []string{"whoami", api}, expected: "galileo (moderator)\npermissions: can_edit, can_moderate\n"},
		{args: []string{"logout", api}, expected: "Logged out.\n"},
		{args: []string{"whoami", api}, expected: "Not logged in.\n"},
	}

	for _, step := range steps {
		out, err := execute(t, step.args...)
		if step.fails {
			if err == nil {
				t.Errorf("%v: expected an error", step.args)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%v: %v", step.args, err)
		}
		if out != step.expected {
			t.Errorf("%v: expected %q, got %q", step.args, step.expected, out)
		}
	}
}

func TestLoginReadsPasswordFromInput(t *testing.T) {
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("cosimo", "medicean-stars", "user")
	t.Setenv("WIKIFRONT_STORAGE_BACKEND", "memory")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader("medicean-stars\n"))
	password = ""
	rootCmd.SetArgs([]string{"login", "--api-url=" + srv.APIURL(), "-u", "cosimo"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if expected := "Logged in as cosimo.\n"; out.String() != expected {
		t.Errorf("expected %q, got %q", expected, out.String())
	}
}
