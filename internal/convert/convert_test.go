package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runFunc func(ctx context.Context, name string, args []string) ([]byte, error)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    runFunc
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	return f.fn(ctx, name, args)
}

// outdirAndInput returns the --outdir value and the input path of a
// converter invocation; they are always the last two arguments.
func outdirAndInput(args []string) (string, string) {
	return args[len(args)-2], args[len(args)-1]
}

// sofficeWriting mimics the converter: it writes body into --outdir under the
// name returned by nameFor(input).
func sofficeWriting(body []byte, nameFor func(input string) string) runFunc {
	return func(_ context.Context, _ string, args []string) ([]byte, error) {
		outdir, input := outdirAndInput(args)
		return nil, os.WriteFile(filepath.Join(outdir, nameFor(input)), body, 0o600)
	}
}

func sameStem(input string) string {
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".pdf"
}

func newTestConverter(t *testing.T, fn runFunc) (*Converter, *fakeRunner, string) {
	t.Helper()
	dir := t.TempDir()
	r := &fakeRunner{fn: fn}
	return New(Config{ScratchDir: dir, Runner: r, ConversionTimeout: time.Second, ExtractorTimeout: time.Second}), r, dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch dir should be empty after the call")
}

func TestToPDF_PredictedOutput(t *testing.T) {
	c, r, dir := newTestConverter(t, sofficeWriting([]byte("%PDF-converted"), sameStem))

	var got []byte
	err := c.ToPDF(context.Background(), strings.NewReader("legacy bytes"), ".ppt", func(pdfPath string) error {
		var err error
		got, err = os.ReadFile(pdfPath)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-converted", string(got))

	require.Len(t, r.calls, 1)
	call := r.calls[0]
	require.Len(t, call, 8)
	assert.Equal(t, "soffice", call[0])
	assert.Equal(t, []string{"--headless", "--convert-to", "pdf", "--outdir"}, call[2:6])
	workspace := call[6]
	assert.True(t, strings.HasPrefix(workspace, filepath.Join(dir, WorkspacePrefix)))
	assert.True(t, strings.HasSuffix(call[7], ".ppt"), "input %q should keep the .ppt suffix", call[7])
	assert.Equal(t, "-env:UserInstallation=file://"+filepath.Join(workspace, "profile"), call[1],
		"each run needs its own soffice profile inside the workspace")

	assertEmptyDir(t, dir)
}

func TestToPDF_RenamedOutputFoundByRecency(t *testing.T) {
	c, _, dir := newTestConverter(t, sofficeWriting([]byte("%PDF-renamed"), func(string) string { return "Presentation1.pdf" }))

	var found string
	err := c.ToPDF(context.Background(), strings.NewReader("x"), ".ppt", func(pdfPath string) error {
		found = filepath.Base(pdfPath)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Presentation1.pdf", found)
	assertEmptyDir(t, dir)
}

func TestToPDF_OutputNotFound(t *testing.T) {
	c, _, dir := newTestConverter(t, func(context.Context, string, []string) ([]byte, error) {
		return nil, nil
	})

	called := false
	err := c.ToPDF(context.Background(), strings.NewReader("x"), ".ppt", func(string) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputNotFound))
	assert.Contains(t, err.Error(), "failed to find the converted PDF in ")
	assert.False(t, called)
	assertEmptyDir(t, dir)
}

func TestToPDF_ToolFailure(t *testing.T) {
	c, _, dir := newTestConverter(t, func(context.Context, string, []string) ([]byte, error) {
		return nil, errors.New("exit status 77")
	})

	err := c.ToPDF(context.Background(), strings.NewReader("x"), ".ppt", func(string) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolFailed))
	assert.Contains(t, err.Error(), "exit status 77")
	assertEmptyDir(t, dir)
}

func TestToPDF_Timeout(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{fn: func(ctx context.Context, _ string, _ []string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := New(Config{ScratchDir: dir, Runner: r, ConversionTimeout: 20 * time.Millisecond})

	err := c.ToPDF(context.Background(), strings.NewReader("x"), ".ppt", func(string) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrToolFailed))
	assertEmptyDir(t, dir)
}

func TestToPDF_CallbackErrorStillCleansUp(t *testing.T) {
	c, _, dir := newTestConverter(t, sofficeWriting([]byte("%PDF"), sameStem))

	boom := errors.New("boom")
	err := c.ToPDF(context.Background(), strings.NewReader("x"), ".ppt", func(string) error { return boom })
	assert.ErrorIs(t, err, boom)
	assertEmptyDir(t, dir)
}

func TestToPDF_PanicStillCleansUp(t *testing.T) {
	c, _, dir := newTestConverter(t, sofficeWriting([]byte("%PDF"), sameStem))

	assert.Panics(t, func() {
		_ = c.ToPDF(context.Background(), strings.NewReader("x"), ".ppt", func(string) error { panic("parser blew up") })
	})
	assertEmptyDir(t, dir)
}

func TestToPDF_ConcurrentCallsUseSeparateWorkspaces(t *testing.T) {
	c, r, dir := newTestConverter(t, func(_ context.Context, _ string, args []string) ([]byte, error) {
		outdir, input := outdirAndInput(args)
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		time.Sleep(10 * time.Millisecond)
		return nil, os.WriteFile(filepath.Join(outdir, sameStem(input)), data, 0o600)
	})

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := strings.Repeat(string(rune('a'+i)), 16)
			errs[i] = c.ToPDF(context.Background(), strings.NewReader(want), ".ppt", func(p string) error {
				b, err := os.ReadFile(p)
				results[i] = string(b)
				return err
			})
		}(i)
	}
	wg.Wait()

	outdirs := map[string]bool{}
	profiles := map[string]bool{}
	for _, call := range r.calls {
		outdirs[call[len(call)-2]] = true
		profiles[call[1]] = true
	}
	assert.Len(t, outdirs, n)
	assert.Len(t, profiles, n, "concurrent runs must not share a soffice profile")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, strings.Repeat(string(rune('a'+i)), 16), results[i])
	}
	assertEmptyDir(t, dir)
}

func TestExtractText(t *testing.T) {
	var seen []byte
	c, r, dir := newTestConverter(t, func(_ context.Context, _ string, args []string) ([]byte, error) {
		var err error
		seen, err = os.ReadFile(args[0])
		return []byte("Slide title\nBody text\n"), err
	})

	text, err := c.ExtractText(context.Background(), bytes.NewReader([]byte("ppt payload")), ".ppt")
	require.NoError(t, err)
	assert.Equal(t, "Slide title\nBody text\n", text)
	assert.Equal(t, "ppt payload", string(seen))
	require.Len(t, r.calls, 1)
	assert.Equal(t, "catppt", r.calls[0][0])
	assert.True(t, strings.HasSuffix(r.calls[0][1], ".ppt"))
	assertEmptyDir(t, dir)
}

func TestExtractText_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{ScratchDir: dir, CatpptPath: filepath.Join(dir, "no-such-catppt")})

	_, err := c.ExtractText(context.Background(), strings.NewReader("x"), ".ppt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolFailed))
	assertEmptyDir(t, dir)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, os.TempDir(), c.ScratchDir())
	assert.Equal(t, "soffice", c.cfg.SofficePath)
	assert.Equal(t, "catppt", c.cfg.CatpptPath)
	assert.Equal(t, 2*time.Minute, c.cfg.ConversionTimeout)
	assert.Equal(t, 30*time.Second, c.cfg.ExtractorTimeout)
	assert.IsType(t, ExecRunner{}, c.cfg.Runner)
}
