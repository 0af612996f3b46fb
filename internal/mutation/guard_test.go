package mutation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_SingleInFlight(t *testing.T) {
	g := NewGuard()

	release, err := g.Acquire("s1:topup")
	require.NoError(t, err)
	assert.True(t, g.Busy("s1:topup"))

	_, err = g.Acquire("s1:topup")
	assert.ErrorIs(t, err, ErrMutationInFlight)

	other, err := g.Acquire("s2:topup")
	require.NoError(t, err, "other sessions are independent")
	other()

	release()
	release()
	assert.False(t, g.Busy("s1:topup"))

	again, err := g.Acquire("s1:topup")
	require.NoError(t, err)
	again()
}

func TestGuard_ConcurrentAcquireAdmitsOne(t *testing.T) {
	g := NewGuard()
	const workers = 16

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	releases := make([]func(), 0, 1)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release, err := g.Acquire("s1:join_signal")
			if err != nil {
				return
			}
			mu.Lock()
			admitted++
			releases = append(releases, release)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	for _, r := range releases {
		r()
	}
}

const (
	testWait = time.Second
	testTick = time.Millisecond
)
