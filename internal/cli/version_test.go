package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/papyrus-labs/scholarag/internal/version"
)

func TestVersionCmd_Use(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("Use = %q, want version", versionCmd.Use)
	}
}

func TestVersionCmd_Executes(t *testing.T) {
	original := version.Version
	version.Version = "1.2.3-test"
	defer func() { version.Version = original }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(buf.String(), "scholarag version 1.2.3-test") {
		t.Errorf("output = %q, want version string", buf.String())
	}
}

func TestRootCmd_HasCommands(t *testing.T) {
	want := map[string]bool{"serve": false, "ingest": false, "chat": false, "version": false}
	for _, c := range rootCmd.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
