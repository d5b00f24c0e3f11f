// Package regexcache provides a process-wide cache of compiled regexp2
// patterns, shared by the predicate engine's json_regex rule and the
// mapper's regex transform so neither re-compiles a pattern already seen by
// the other.
package regexcache

import (
	"sync"

	"github.com/dlclark/regexp2"
)

var (
	mu    sync.RWMutex
	cache = map[string]*regexp2.Regexp{}
)

// Compile returns the cached *regexp2.Regexp for pattern, compiling and
// caching it on first use.
func Compile(pattern string) (*regexp2.Regexp, error) {
	mu.RLock()
	if re, ok := cache[pattern]; ok {
		mu.RUnlock()
		return re, nil
	}
	mu.RUnlock()

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cache[pattern] = re
	mu.Unlock()
	return re, nil
}
