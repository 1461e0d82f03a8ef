package latex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFakeConverter installs a shell script that mimics a plastex-style
// converter: it writes index.html into the --dir target.
func writeFakeConverter(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "fakeplastex")
	body := "#!/bin/sh\ndir=\"${1#--dir=}\"\nmkdir -p \"$dir\"\nprintf '<p>tex body</p>' > \"$dir/index.html\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestExecLoader_ConverterOutput_Returned(t *testing.T) {
	loader := &ExecLoader{Binary: writeFakeConverter(t)}

	out, err := loader.Load(context.Background(), "calc.tex", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "<p>tex body</p>", out)
}

func TestExecLoader_MissingBinary_Fails(t *testing.T) {
	loader := &ExecLoader{Binary: "definitely-not-a-latex-binary"}

	_, err := loader.Load(context.Background(), "calc.tex", t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestTexInputsEnv_ExplicitSegmentsFirstAndTrailingEmpty(t *testing.T) {
	t.Setenv("TEXINPUTS", "/ambient")

	env := texInputsEnv([]string{"/course/tex"})
	require.True(t, strings.HasPrefix(env, "TEXINPUTS=/course/tex:"))
	require.Contains(t, env, "/ambient")
	require.True(t, strings.HasSuffix(env, ":"))
}
