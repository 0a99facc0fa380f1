package cmd

import (
	"bytes"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	versionCmd := newVersionCmd()

	// Test command output
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	versionCmd.SetOut(stdout)
	versionCmd.SetErr(stderr)
	versionCmd.Run(versionCmd, nil)

	expected := "Version: " + version + "\n"
	if got := stdout.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
	if got := stderr.String(); got != "" {
		t.Errorf("Expected nothing on stderr, got %q", got)
	}

	// Test command properties
	if got := versionCmd.Use; got != "version" {
		t.Errorf("Expected Use to be 'version', got %q", got)
	}
	if got := versionCmd.Short; got == "" {
		t.Error("Short description should not be empty")
	}
}

func TestVersionCommandFromRoot(t *testing.T) {
	root := newRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := stdout.String(); got != "Version: "+version+"\n" {
		t.Errorf("Expected version on stdout, got %q (stderr %q)", got, stderr.String())
	}
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "version"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q subcommand", name)
		}
	}
}

func TestRootCommandsAreIndependent(t *testing.T) {
	first := newRootCmd()
	second := newRootCmd()

	for _, sub := range first.Commands() {
		if sub.Parent() != first {
			t.Errorf("%q is attached to another root", sub.Name())
		}
	}
	for _, sub := range second.Commands() {
		if sub.Parent() != second {
			t.Errorf("%q is attached to another root", sub.Name())
		}
	}
}
