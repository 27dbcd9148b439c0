package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "cloudtiles "+version) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPrepareRejectsInvalidMode(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := execute(t, "--config", cfgPath, "prepare", "--mode", "video"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestTrainRejectsInvalidModel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(cfgPath, []byte("train:\n  epochs: 1\n"), 0644)
	if _, err := execute(t, "--config", cfgPath, "--log-mode", "release", "train", "--model", "RNN"); err == nil {
		t.Error("Expected error for unknown model")
	}
}

func TestPrepareMissingTable(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", filepath.Join(dir, "none.yaml"), "prepare",
		"--csv", filepath.Join(dir, "train.csv"),
		"--images", dir,
		"--output", filepath.Join(dir, "out"))
	if err == nil || !strings.Contains(err.Error(), "label table") {
		t.Errorf("Expected missing label table error, got %v", err)
	}
}

func TestDefaultConfigFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatal(wdErr)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("prepare:\n  mode: video\n"), 0644)

	_, err := execute(t, "prepare")
	if err == nil || !strings.Contains(err.Error(), "prepare.mode") {
		t.Errorf("Expected config.yaml from the working directory to be validated, got %v", err)
	}
}
