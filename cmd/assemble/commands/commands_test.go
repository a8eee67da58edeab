package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assemble/internal/config"
	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	return dir
}

func testGlobal() (*Global, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Global{Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

const siteAssemblefile = `
history:
  path: .assemble/history.db
tasks:
  - name: pages
    src: ["pages/*.md"]
    dest: dist
  - name: default
    deps: [pages]
`

func TestParseDefaultsToRun(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("assemble"))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"-c", "site.yaml", "pages", "assets"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kctx.Command(), "run"))
	assert.Equal(t, []string{"pages", "assets"}, cli.Run.Tasks)
	assert.Equal(t, "site.yaml", cli.Config)

	kctx, err = parser.Parse([]string{"diff", "a.json", "b.json", "--method", "lines"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kctx.Command(), "diff"))
	assert.Equal(t, "lines", cli.Diff.Method)
}

func TestRunTasksAndHistory(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"assemblefile.yaml": siteAssemblefile,
		"pages/index.md":    "# Hello\n",
	})
	g, stdout, _ := testGlobal()
	root := &CLI{Config: filepath.Join(dir, "assemblefile.yaml")}

	require.NoError(t, RunTasks(t.Context(), g, root, nil))
	out, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hello</h1>\n", string(out))

	cfg, err := config.Load(root.Config)
	require.NoError(t, err)
	require.NoError(t, RunHistory(t.Context(), stdout, cfg, "", time.Hour, 10))
	assert.Contains(t, stdout.String(), "completed")
	assert.Contains(t, stdout.String(), "default")
}

func TestRunUnknownTaskExitCode(t *testing.T) {
	dir := writeSite(t, map[string]string{"assemblefile.yaml": siteAssemblefile})
	g, _, _ := testGlobal()
	root := &CLI{Config: filepath.Join(dir, "assemblefile.yaml")}

	err := RunTasks(t.Context(), g, root, []string{"missing"})
	require.Error(t, err)
	assert.Equal(t, 11, aerrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestMissingAssemblefile(t *testing.T) {
	g, _, _ := testGlobal()
	root := &CLI{Config: filepath.Join(t.TempDir(), "assemblefile.yaml")}

	err := RunTasks(t.Context(), g, root, nil)
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryConfig))
	assert.Equal(t, 7, aerrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestHistoryNotConfigured(t *testing.T) {
	var out bytes.Buffer
	err := RunHistory(t.Context(), &out, &config.Config{}, "", time.Hour, 10)
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryValidation))
}

func TestWatchRequiresTriggers(t *testing.T) {
	dir := writeSite(t, map[string]string{"assemblefile.yaml": siteAssemblefile})
	g, _, _ := testGlobal()
	root := &CLI{Config: filepath.Join(dir, "assemblefile.yaml")}

	err := RunWatch(t.Context(), g, root, false)
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryValidation))
}

func TestInitWritesAssemblefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assemblefile.yaml")
	var out bytes.Buffer

	require.NoError(t, RunInit(&out, path, false))
	assert.Contains(t, out.String(), "Initialized successfully")
	_, err := config.Load(path)
	require.NoError(t, err)

	err = RunInit(&out, path, false)
	require.Error(t, err)
	require.NoError(t, RunInit(&out, path, true))
}

func TestDiffFiles(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"a.yaml": "title: one\n",
		"b.json": `{"title": "two"}`,
	})
	g, _, stderr := testGlobal()
	cmd := &DiffCmd{A: filepath.Join(dir, "a.yaml"), B: filepath.Join(dir, "b.json"), Method: "json"}

	require.NoError(t, cmd.Run(g, &CLI{}))
	assert.Contains(t, stderr.String(), "one")
	assert.Contains(t, stderr.String(), "two")
}

func TestDiffRejectsUnknownMethod(t *testing.T) {
	g, _, _ := testGlobal()
	cmd := &DiffCmd{A: "x", B: "y", Method: "words"}
	err := cmd.Run(g, &CLI{})
	require.Error(t, err)
	assert.Equal(t, 2, aerrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestVersion(t *testing.T) {
	g, stdout, _ := testGlobal()
	require.NoError(t, (&VersionCmd{}).Run(g, &CLI{}))
	assert.Contains(t, stdout.String(), "assemble")
}
