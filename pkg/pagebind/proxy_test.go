package pagebind

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagebind/pkg/by"
)

func TestProxyResolvesLazily(t *testing.T) {
	ctx := context.Background()
	el := &fakeElement{id: "a"}
	loc := &fakeLocator{oneFunc: resolveSequence(el)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})
	assert.Zero(t, loc.resolveOneCalls(), "construction must not resolve")

	require.NoError(t, p.Click(ctx))
	assert.Equal(t, 1, loc.resolveOneCalls())
	assert.Equal(t, 1, el.clickCount())
}

func TestProxyCachesAcrossInvocations(t *testing.T) {
	ctx := context.Background()
	el := &fakeElement{id: "a", textVal: "hello"}
	loc := &fakeLocator{oneFunc: resolveSequence(el)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Click(ctx))
	}
	text, err := p.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	assert.Equal(t, 1, loc.resolveOneCalls(), "cached handle must be reused")
	assert.Equal(t, 5, el.clickCount())
}

func TestProxyRecoversFromSingleStaleness(t *testing.T) {
	ctx := context.Background()
	first := &fakeElement{id: "first", clickErr: staleOn(2)}
	second := &fakeElement{id: "second"}
	loc := &fakeLocator{oneFunc: resolveSequence(first, second)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})

	require.NoError(t, p.Click(ctx), "first invocation")
	require.NoError(t, p.Click(ctx), "second invocation must heal")

	assert.Equal(t, 2, loc.resolveOneCalls(), "exactly one re-resolution")
	assert.Equal(t, 2, first.clickCount())
	assert.Equal(t, 1, second.clickCount(), "retried exactly once on the new handle")
}

func TestProxyDoesNotRetryTwiceInOneInvocation(t *testing.T) {
	ctx := context.Background()
	first := &fakeElement{id: "first", clickErr: staleOn(3)}
	second := &fakeElement{id: "second", clickErr: alwaysStale()}
	loc := &fakeLocator{oneFunc: resolveSequence(first, second)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})

	require.NoError(t, p.Click(ctx))
	require.NoError(t, p.Click(ctx))

	err := p.Click(ctx)
	require.Error(t, err)
	assert.True(t, IsStale(err), "second staleness in one invocation surfaces unchanged")
	assert.Equal(t, 2, loc.resolveOneCalls())
	assert.Equal(t, 1, second.clickCount(), "no second retry")
}

func TestProxyPropagatesOtherErrorsWithoutInvalidation(t *testing.T) {
	ctx := context.Background()
	notInteractable := errors.New("element not interactable")
	el := &fakeElement{id: "a", clickErr: func(call int) error {
		if call == 1 {
			return notInteractable
		}
		return nil
	}}
	loc := &fakeLocator{oneFunc: resolveSequence(el)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})

	err := p.Click(ctx)
	require.ErrorIs(t, err, notInteractable)
	assert.Equal(t, 1, loc.resolveOneCalls(), "non-stale failures never re-resolve")

	require.NoError(t, p.Click(ctx))
	assert.Equal(t, 1, loc.resolveOneCalls(), "cache survives non-stale failures")
}

func TestProxyNotFoundIsNotRetriedWithinInvocation(t *testing.T) {
	ctx := context.Background()
	loc := &fakeLocator{} // resolves nothing

	p := NewProxy(loc, []by.Criterion{by.ID("missing")}, ProxyOptions{})

	err := p.Click(ctx)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 1, loc.resolveOneCalls())

	// The proxy is not poisoned: the next invocation tries again.
	err = p.Click(ctx)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 2, loc.resolveOneCalls())
}

func TestProxyFreshModeResolvesEveryInvocation(t *testing.T) {
	ctx := context.Background()
	el := &fakeElement{id: "a"}
	loc := &fakeLocator{oneFunc: resolveSequence(el)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{Fresh: true})

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Click(ctx))
	}
	assert.Equal(t, 3, loc.resolveOneCalls())
}

func TestProxyFreshModeStillRecoversStaleness(t *testing.T) {
	ctx := context.Background()
	flaky := &fakeElement{id: "flaky", clickErr: staleOn(1)}
	solid := &fakeElement{id: "solid"}
	loc := &fakeLocator{oneFunc: resolveSequence(flaky, solid)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{Fresh: true})

	require.NoError(t, p.Click(ctx))
	assert.Equal(t, 2, loc.resolveOneCalls(), "fresh resolve plus one recovery")
	assert.Equal(t, 1, solid.clickCount())
}

func TestProxyDeduplicatesCriteria(t *testing.T) {
	p := NewProxy(&fakeLocator{}, []by.Criterion{
		by.ID("x"), by.ClassName("y"), by.ID("x"),
	}, ProxyOptions{})

	assert.Equal(t, []by.Criterion{by.ID("x"), by.ClassName("y")}, p.Criteria())
}

// Three clicks against criteria [id=x, class=y] where the handle goes
// stale on the second click: the page heals, every click succeeds, and
// the locator is consulted exactly twice.
func TestProxyClickScenarioWithRecovery(t *testing.T) {
	ctx := context.Background()
	criteria := []by.Criterion{by.ID("x"), by.ClassName("y")}

	first := &fakeElement{id: "first", clickErr: staleOn(2)}
	second := &fakeElement{id: "second"}

	loc := &fakeLocator{oneFunc: func(call int, crit []by.Criterion) (Element, error) {
		assert.Equal(t, criteria, crit)
		if call == 1 {
			return first, nil
		}
		return second, nil
	}}

	p := NewProxy(loc, criteria, ProxyOptions{})

	require.NoError(t, p.Click(ctx))
	require.NoError(t, p.Click(ctx))
	require.NoError(t, p.Click(ctx))

	assert.Equal(t, 2, loc.resolveOneCalls())
	assert.Equal(t, 2, first.clickCount())
	assert.Equal(t, 2, second.clickCount())
}

// A single missing criterion surfaces ElementNotFound naming it on the
// first capability invocation, resolved through the real locator.
func TestProxyNotFoundNamesCriteria(t *testing.T) {
	ctx := context.Background()
	sc := newFakeContext()

	p := NewProxy(NewLocator(sc), []by.Criterion{by.ID("missing")}, ProxyOptions{})

	err := p.Click(ctx)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []by.Criterion{by.ID("missing")}, notFound.Criteria)
	assert.Contains(t, err.Error(), "id=missing")
}

func TestProxySingleResolutionUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	el := &fakeElement{id: "a"}
	loc := &fakeLocator{oneFunc: resolveSequence(el)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Click(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loc.resolveOneCalls(), "no lost-update double resolution")
	assert.Equal(t, 50, el.clickCount())
}

func TestProxyConcurrentStalenessRecoversOnce(t *testing.T) {
	ctx := context.Background()
	dead := &fakeElement{id: "dead", clickErr: alwaysStale()}
	alive := &fakeElement{id: "alive"}
	loc := &fakeLocator{oneFunc: resolveSequence(dead, alive)}

	p := NewProxy(loc, []by.Criterion{by.ID("x")}, ProxyOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Click(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, loc.resolveOneCalls(), "one recovery serves every waiter")
	assert.Equal(t, 1, dead.clickCount())
	assert.Equal(t, 20, alive.clickCount())
}

func TestProxyScopedFindHealsStaleRoot(t *testing.T) {
	ctx := context.Background()

	child := &fakeElement{id: "child", textVal: "inner"}
	childScope := newFakeContext()
	childScope.set(by.ClassName("child"), child)

	// The stale root fails any scoped find; the healed root carries
	// the child.
	staleRoot := &staleScopeElement{}
	liveRoot := &fakeElement{id: "root", scope: childScope}
	loc := &fakeLocator{oneFunc: resolveSequence(staleRoot, liveRoot)}

	p := NewProxy(loc, []by.Criterion{by.ID("root")}, ProxyOptions{})

	got, err := p.Find(ctx, by.ClassName("child"))
	require.NoError(t, err)
	text, err := got.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inner", text)
	assert.Equal(t, 2, loc.resolveOneCalls())
}

// staleScopeElement reports staleness for every scoped find, like a
// detached container node.
type staleScopeElement struct {
	stubElement
}

func (s *staleScopeElement) Find(context.Context, by.Criterion) (Element, error) {
	return nil, &StaleError{}
}

func (s *staleScopeElement) FindAll(context.Context, by.Criterion) ([]Element, error) {
	return nil, &StaleError{}
}
