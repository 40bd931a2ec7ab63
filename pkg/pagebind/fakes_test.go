package pagebind

import (
	"context"
	"sync"

	"github.com/entrhq/pagebind/pkg/by"
)

// stubElement implements Element with no-op successes so fakes only
// override what a test scripts.
type stubElement struct{}

func (stubElement) Find(context.Context, by.Criterion) (Element, error) {
	return nil, ErrNoMatch
}
func (stubElement) FindAll(context.Context, by.Criterion) ([]Element, error) { return nil, nil }
func (stubElement) Click(context.Context) error                              { return nil }
func (stubElement) Fill(context.Context, string) error                       { return nil }
func (stubElement) Type(context.Context, string) error                       { return nil }
func (stubElement) Press(context.Context, string) error                      { return nil }
func (stubElement) Hover(context.Context) error                              { return nil }
func (stubElement) Focus(context.Context) error                              { return nil }
func (stubElement) Text(context.Context) (string, error)                     { return "", nil }
func (stubElement) TagName(context.Context) (string, error)                  { return "div", nil }
func (stubElement) Attribute(context.Context, string) (string, bool, error)  { return "", false, nil }
func (stubElement) IsVisible(context.Context) (bool, error)                  { return true, nil }
func (stubElement) IsEnabled(context.Context) (bool, error)                  { return true, nil }
func (stubElement) IsChecked(context.Context) (bool, error)                  { return false, nil }

// fakeElement is a scriptable Element. Per-call behavior is scripted
// through the err funcs, which receive the 1-based call number.
type fakeElement struct {
	stubElement
	id    string
	scope *fakeContext // children for scoped finds, nil for none

	mu       sync.Mutex
	clicks   int
	texts    int
	fills    []string
	clickErr func(call int) error
	textVal  string
	textErr  func(call int) error
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.mu.Lock()
	e.clicks++
	call := e.clicks
	script := e.clickErr
	e.mu.Unlock()
	if script != nil {
		return script(call)
	}
	return nil
}

func (e *fakeElement) Fill(ctx context.Context, value string) error {
	e.mu.Lock()
	e.fills = append(e.fills, value)
	e.mu.Unlock()
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	e.texts++
	call := e.texts
	script := e.textErr
	val := e.textVal
	e.mu.Unlock()
	if script != nil {
		if err := script(call); err != nil {
			return "", err
		}
	}
	return val, nil
}

func (e *fakeElement) clickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *fakeElement) Find(ctx context.Context, c by.Criterion) (Element, error) {
	if e.scope == nil {
		return nil, ErrNoMatch
	}
	return e.scope.Find(ctx, c)
}

func (e *fakeElement) FindAll(ctx context.Context, c by.Criterion) ([]Element, error) {
	if e.scope == nil {
		return nil, nil
	}
	return e.scope.FindAll(ctx, c)
}

// staleOn scripts a StaleError on exactly the given click calls.
func staleOn(calls ...int) func(int) error {
	set := make(map[int]bool, len(calls))
	for _, c := range calls {
		set[c] = true
	}
	return func(call int) error {
		if set[call] {
			return &StaleError{}
		}
		return nil
	}
}

// alwaysStale scripts a StaleError on every click.
func alwaysStale() func(int) error {
	return func(int) error { return &StaleError{} }
}

// fakeContext is a scriptable SearchContext: a map from criterion to
// the elements it matches, with call logging.
type fakeContext struct {
	mu       sync.Mutex
	matches  map[by.Criterion][]Element
	findErr  map[by.Criterion]error // non-miss failures
	findLog  []by.Criterion
	allLog   []by.Criterion
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		matches: make(map[by.Criterion][]Element),
		findErr: make(map[by.Criterion]error),
	}
}

func (f *fakeContext) set(c by.Criterion, els ...Element) {
	f.mu.Lock()
	f.matches[c] = els
	f.mu.Unlock()
}

func (f *fakeContext) Find(ctx context.Context, c by.Criterion) (Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findLog = append(f.findLog, c)
	if err := f.findErr[c]; err != nil {
		return nil, err
	}
	els := f.matches[c]
	if len(els) == 0 {
		return nil, ErrNoMatch
	}
	return els[0], nil
}

func (f *fakeContext) FindAll(ctx context.Context, c by.Criterion) ([]Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allLog = append(f.allLog, c)
	if err := f.findErr[c]; err != nil {
		return nil, err
	}
	out := make([]Element, len(f.matches[c]))
	copy(out, f.matches[c])
	return out, nil
}

func (f *fakeContext) findCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.findLog) + len(f.allLog)
}

// fakeLocator scripts resolution outcomes directly, for proxy tests
// that count locator calls. Outcome funcs receive the 1-based call
// number.
type fakeLocator struct {
	mu       sync.Mutex
	oneCalls int
	allCalls int
	oneFunc  func(call int, criteria []by.Criterion) (Element, error)
	allFunc  func(call int, criteria []by.Criterion) ([]Element, error)
}

func (f *fakeLocator) ResolveOne(ctx context.Context, criteria []by.Criterion) (Element, error) {
	f.mu.Lock()
	f.oneCalls++
	call := f.oneCalls
	fn := f.oneFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, newNotFoundError(criteria)
	}
	return fn(call, criteria)
}

func (f *fakeLocator) ResolveAll(ctx context.Context, criteria []by.Criterion) ([]Element, error) {
	f.mu.Lock()
	f.allCalls++
	call := f.allCalls
	fn := f.allFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, criteria)
}

func (f *fakeLocator) resolveOneCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oneCalls
}

func (f *fakeLocator) resolveAllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allCalls
}

// resolveSequence scripts ResolveOne to hand out the given elements in
// order, repeating the last one once the sequence is exhausted.
func resolveSequence(els ...Element) func(int, []by.Criterion) (Element, error) {
	return func(call int, _ []by.Criterion) (Element, error) {
		if call <= len(els) {
			return els[call-1], nil
		}
		return els[len(els)-1], nil
	}
}
