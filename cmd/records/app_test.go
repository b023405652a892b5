package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// run executes one command against dataDir and returns its output and exit code.
func run(t *testing.T, dataDir string, args ...string) (string, int, error) {
	t.Helper()
	t.Setenv("RECORDS_MIN_FREE_BYTES", "0")
	t.Setenv("RECORDS_BACKUP_RETRY_DELAY", "0s")
	t.Setenv("LOG_LEVEL", "disabled")

	var out bytes.Buffer
	code := 0
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(_ *cli.Context, err error) {
		if ec, ok := err.(cli.ExitCoder); ok {
			code = ec.ExitCode()
		}
	}

	argv := append([]string{"records", "--config", filepath.Join(dataDir, "none.yaml"), "--data-dir", dataDir}, args...)
	err := app.Run(argv)
	return out.String(), code, err
}

func TestCLI_SeedCheckReport(t *testing.T) {
	dir := t.TempDir()

	out, _, err := run(t, dir, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 4 student(s), 4 course(s), 7 assessment(s)")

	_, code, err := run(t, dir, "seed")
	require.Error(t, err)
	assert.Equal(t, 1, code)

	out, _, err = run(t, dir, "seed", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded")

	out, _, err = run(t, dir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 4 student(s), 4 course(s), 7 assessment(s)")

	out, _, err = run(t, dir, "report", "--roll", "1001")
	require.NoError(t, err)
	assert.Contains(t, out, "1001 Ayse Yilmaz")
	assert.Contains(t, out, "MATH101")
	assert.Contains(t, out, "overall (weighted_average)")

	out, _, err = run(t, dir, "report", "--course", "hist205")
	require.NoError(t, err)
	assert.Contains(t, out, "HIST205: 2 enrolled, 2 assessed")

	_, code, err = run(t, dir, "report")
	require.Error(t, err)
	assert.Equal(t, 2, code)
}

func TestCLI_CheckAndRepair(t *testing.T) {
	dir := t.TempDir()
	_, _, err := run(t, dir, "seed")
	require.NoError(t, err)

	f, err := os.OpenFile(filepath.Join(dir, "assessments.csv"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("ASS9999_MATH101,9999,MATH101,50.0,50.0,50.0,2024-01-20,Exam,No,,\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, code, err := run(t, dir, "check")
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "references non-existent student: 9999")

	out, _, err = run(t, dir, "repair")
	require.NoError(t, err)
	assert.Contains(t, out, "removed assessment ASS9999_MATH101")

	out, _, err = run(t, dir, "repair")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to repair")
}

func TestCLI_BackupRestoreCleanup(t *testing.T) {
	dir := t.TempDir()
	_, _, err := run(t, dir, "init")
	require.NoError(t, err)
	_, _, err = run(t, dir, "seed")
	require.NoError(t, err)

	out, _, err := run(t, dir, "backup", "--incremental")
	require.NoError(t, err)
	session := strings.TrimSpace(strings.TrimPrefix(out, "created "))
	assert.DirExists(t, session)

	_, _, err = run(t, dir, "backup")
	require.NoError(t, err)

	out, _, err = run(t, dir, "backups")
	require.NoError(t, err)
	assert.Contains(t, out, "session")
	assert.Contains(t, out, ".bak")

	out, _, err = run(t, dir, "restore", session)
	require.NoError(t, err)
	assert.Contains(t, out, "restored from")

	_, code, err := run(t, dir, "restore")
	require.Error(t, err)
	assert.Equal(t, 2, code)

	out, _, err = run(t, dir, "cleanup", "--keep", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "kept at most 0")

	out, _, err = run(t, dir, "backups")
	require.NoError(t, err)
	assert.Contains(t, out, "no backups")
}
