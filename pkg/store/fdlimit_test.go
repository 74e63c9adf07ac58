//go:build linux

package store

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree_TableCountNotBoundByDescriptorLimit(t *testing.T) {
	const limit = 64

	var old syscall.Rlimit
	require.NoError(t, syscall.Getrlimit(syscall.RLIMIT_NOFILE, &old))
	if old.Cur < limit {
		t.Skipf("descriptor limit already below %d", limit)
	}
	lowered := old
	lowered.Cur = limit
	require.NoError(t, syscall.Setrlimit(syscall.RLIMIT_NOFILE, &lowered))
	t.Cleanup(func() { _ = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &old) })

	cfg := testConfig(t.TempDir(), 1)
	tree := openTestTree(t, cfg)

	const tables = 3 * limit
	for i := 0; i < tables; i++ {
		require.NoError(t, tree.Put([]byte(fmt.Sprintf("key-%04d", i)), []byte(fmt.Sprint(i))), "put %d", i)
	}
	require.Equal(t, tables, tree.Stats().Tables)
	require.Equal(t, 0, tree.Stats().PendingFlushes)

	for i := 0; i < tables; i++ {
		requireValue(t, tree, fmt.Sprintf("key-%04d", i), fmt.Sprint(i))
	}
	require.NoError(t, tree.Close())

	reopened := openTestTree(t, cfg)
	require.Equal(t, tables, reopened.Stats().Tables)
	requireValue(t, reopened, "key-0000", "0")
	requireValue(t, reopened, fmt.Sprintf("key-%04d", tables-1), fmt.Sprint(tables-1))
}
