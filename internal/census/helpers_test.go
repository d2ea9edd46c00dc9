package census

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// deflate returns content as a zlib stream, the encoding of a loose object file.
func deflate(t *testing.T, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// writeFile writes raw bytes to root/rel, creating parent directories.
func writeFile(t *testing.T, root, rel string, raw []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	return path
}

// writeObject stores content deflated at root/rel.
func writeObject(t *testing.T, root, rel string, content []byte) string {
	t.Helper()

	return writeFile(t, root, rel, deflate(t, content))
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)

	return zap.New(core), logs
}
