package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"stones/pkg/dberrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Writers race each other across many flush thresholds. Every acknowledged
// write must stay readable, both right after the put and once all writers
// are done.
func TestTree_ConcurrentWritesSurviveFlush(t *testing.T) {
	tree := newTestTree(t, 16)

	const (
		writers   = 8
		perWriter = 400
	)

	var (
		wg   sync.WaitGroup
		errs = make(chan error, writers)
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := []byte(fmt.Sprintf("w%02d-%05d", w, i))
				value := []byte(fmt.Sprintf("v%d", i))
				if err := tree.Put(key, value); err != nil {
					errs <- fmt.Errorf("put %s: %w", key, err)
					return
				}

				got, found, err := tree.Get(key)
				if err != nil {
					errs <- fmt.Errorf("get %s: %w", key, err)
					return
				}
				if !found || string(got) != string(value) {
					errs <- fmt.Errorf("acknowledged write %s lost (found=%v, got=%q)", key, found, got)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			key := []byte(fmt.Sprintf("w%02d-%05d", w, i))
			got, found, err := tree.Get(key)
			require.NoError(t, err)
			require.True(t, found, "key %s", key)
			require.Equal(t, fmt.Sprintf("v%d", i), string(got))
		}
	}

	st := tree.Stats()
	require.Equal(t, 0, st.PendingFlushes)
	require.Equal(t, writers*perWriter, st.MemtableEntries+tablesEntries(tree))
}

func TestTree_ConcurrentOverwritesAndDeletes(t *testing.T) {
	tree := newTestTree(t, 8)

	const rounds = 301
	keys := []string{"alpha", "beta", "gamma", "delta"}

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				if i%5 == 4 {
					assert.NoError(t, tree.Delete([]byte(k)))
					continue
				}
				assert.NoError(t, tree.Put([]byte(k), []byte(fmt.Sprintf("%s-%d", k, i))))
			}
		}(k)
	}

	// readers only ever see complete values written by the owner
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				for _, k := range keys {
					got, found, err := tree.Get([]byte(k))
					if !assert.NoError(t, err) {
						return
					}
					if found {
						assert.Contains(t, string(got), k+"-")
					}
				}
			}
		}()
	}
	wg.Wait()

	// the last round is a put
	for _, k := range keys {
		got, found, err := tree.Get([]byte(k))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, fmt.Sprintf("%s-%d", k, rounds-1), string(got))
	}
}

// A write acknowledged while Close runs must reach disk.
func TestTree_WritesRacingCloseAreFlushed(t *testing.T) {
	const (
		rounds  = 20
		writers = 4
	)

	for round := 0; round < rounds; round++ {
		cfg := testConfig(t.TempDir(), 1000)
		tree := openTestTree(t, cfg)

		var (
			wg    sync.WaitGroup
			acked = make([][]string, writers)
			errs  = make(chan error, writers)
		)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; ; i++ {
					key := fmt.Sprintf("w%d-%06d", w, i)
					err := tree.Put([]byte(key), []byte(key))
					if errors.Is(err, dberrors.ErrClosed) {
						return
					}
					if err != nil {
						errs <- err
						return
					}
					acked[w] = append(acked[w], key)
				}
			}(w)
		}

		require.NoError(t, tree.Close())
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		reopened := openTestTree(t, cfg)
		for _, keys := range acked {
			for _, key := range keys {
				requireValue(t, reopened, key, key)
			}
		}
		require.NoError(t, reopened.Close())
	}
}

func tablesEntries(tree *Tree) int {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	n := 0
	for _, g := range tree.tables {
		n += g.table.Count()
	}
	return n
}
