// Package graph is the build engine: an explicit dependency graph of
// file artifacts with make-style freshness, hardened by content hashes
// so a partially written output from an interrupted run is still seen
// as stale.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Action produces a rule's output from its inputs.
type Action func(ctx context.Context) error

// Rule maps one output file to the inputs it is built from.
type Rule struct {
	Output string
	Inputs []string
	Action Action
}

// PatternFunc resolves a requested target path to a concrete rule, or
// reports that the pattern does not apply.
type PatternFunc func(target string) (*Rule, bool)

// CycleError reports a dependency cycle with one witness path.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Graph holds rules and drives builds. Not safe for concurrent use;
// execution is sequential by design.
type Graph struct {
	fs    afero.Fs
	cache *Cache

	rules      map[string]*Rule
	patterns   []PatternFunc
	aggregates map[string][]string

	hashMemo map[string]string
	built    map[string]bool

	// Log, when set, receives one line per executed rule.
	Log func(format string, args ...any)
}

// New returns an empty graph operating on fs.
func New(fs afero.Fs) *Graph {
	return &Graph{
		fs:         fs,
		rules:      make(map[string]*Rule),
		aggregates: make(map[string][]string),
		hashMemo:   make(map[string]string),
		built:      make(map[string]bool),
	}
}

// SetCache attaches a persistent hash cache. Without one, freshness
// falls back to mtime comparison alone.
func (g *Graph) SetCache(c *Cache) { g.cache = c }

// Add registers a concrete rule. The last registration for an output wins.
func (g *Graph) Add(r *Rule) { g.rules[r.Output] = r }

// AddPattern registers a pattern rule, consulted in registration order
// when no concrete rule matches a target.
func (g *Graph) AddPattern(fn PatternFunc) { g.patterns = append(g.patterns, fn) }

// AddAggregate registers a named target that is a pure composition of
// other targets, built in order.
func (g *Graph) AddAggregate(name string, targets ...string) {
	g.aggregates[name] = targets
}

// Build brings the target up to date. Aggregates expand to their
// members; the first failing rule aborts the rest.
func (g *Graph) Build(ctx context.Context, target string) error {
	// Freshness is judged per run: memos from an earlier Build on the
	// same graph must not mask an edit made in between.
	g.built = make(map[string]bool)
	g.hashMemo = make(map[string]string)

	targets, ok := g.aggregates[target]
	if !ok {
		targets = []string{target}
	}

	for _, t := range targets {
		if _, err := g.resolve(t, nil); err != nil {
			return err
		}
	}
	if err := g.checkAcyclic(targets); err != nil {
		return err
	}
	for _, t := range targets {
		if err := g.build(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// resolve finds or instantiates the rule for a target, recursively
// resolving its inputs. Source files (present on disk with no rule)
// resolve to nil. seen guards against unbounded pattern recursion.
func (g *Graph) resolve(target string, seen map[string]bool) (*Rule, error) {
	if seen[target] {
		// A cycle; reported properly by checkAcyclic once the
		// involved rules are registered.
		return g.rules[target], nil
	}
	if seen == nil {
		seen = make(map[string]bool)
	}
	seen[target] = true

	// A concrete rule's inputs may themselves only be producible by a
	// pattern rule, so they are resolved just like pattern inputs.
	if r, ok := g.rules[target]; ok {
		for _, in := range r.Inputs {
			if _, err := g.resolve(in, seen); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	for _, fn := range g.patterns {
		r, ok := fn(target)
		if !ok {
			continue
		}
		g.rules[target] = r
		for _, in := range r.Inputs {
			if _, err := g.resolve(in, seen); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	exists, err := afero.Exists(g.fs, target)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil // source file
	}
	return nil, fmt.Errorf("no rule to build %q and no such file", target)
}

// checkAcyclic proves the subgraph reachable from the requested targets
// has no cycles, using Kahn's algorithm; on failure a deterministic DFS
// extracts one witness path.
func (g *Graph) checkAcyclic(targets []string) error {
	// Collect reachable rule outputs in a canonical order.
	reach := make(map[string]bool)
	var collect func(t string)
	collect = func(t string) {
		r, ok := g.rules[t]
		if !ok || reach[t] {
			return
		}
		reach[t] = true
		for _, in := range r.Inputs {
			collect(in)
		}
	}
	for _, t := range targets {
		collect(t)
	}

	nodes := make([]string, 0, len(reach))
	for t := range reach {
		nodes = append(nodes, t)
	}
	sort.Strings(nodes)
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	outgoing := make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for i, n := range nodes {
		for _, in := range g.rules[n].Inputs {
			if j, ok := index[in]; ok {
				outgoing[i] = append(outgoing[i], j)
				indeg[j]++
			}
		}
		sort.Ints(outgoing[i])
	}

	queue := make([]int, 0, len(nodes))
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	done := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		done++
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	if done == len(nodes) {
		return nil
	}
	return &CycleError{Path: findCycle(nodes, outgoing)}
}

// findCycle runs a deterministic DFS and reconstructs the first
// back-edge's cycle. Returns the witness as node names, closed (first
// element repeated at the end).
func findCycle(nodes []string, outgoing [][]int) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(nodes))
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range outgoing[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range nodes {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, len(cycle))
	for i, idx := range cycle {
		out[len(cycle)-1-i] = nodes[idx]
	}
	return out
}

// build runs the rule for target depth-first, after its inputs.
func (g *Graph) build(ctx context.Context, target string) error {
	if g.built[target] {
		return nil
	}
	r, ok := g.rules[target]
	if !ok {
		// Source file; resolve already verified it exists.
		return nil
	}

	for _, in := range r.Inputs {
		if err := g.build(ctx, in); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	stale, err := g.isStale(r)
	if err != nil {
		return err
	}
	if stale {
		if g.Log != nil {
			g.Log("building %s", r.Output)
		}
		if err := r.Action(ctx); err != nil {
			return fmt.Errorf("build %s: %w", r.Output, err)
		}
		if err := g.recordHashes(r); err != nil {
			return err
		}
	} else if g.Log != nil {
		g.Log("up to date: %s", r.Output)
	}
	g.built[target] = true
	return nil
}

// isStale reports whether a rule's output must be rebuilt: missing
// output, an input newer than the output, or an input whose content
// hash differs from the one recorded at the last successful build.
func (g *Graph) isStale(r *Rule) (bool, error) {
	out, err := g.fs.Stat(r.Output)
	if err != nil {
		return true, nil // missing or unreadable output
	}

	for _, in := range r.Inputs {
		mt, err := g.newestMtime(in)
		if err != nil {
			return false, fmt.Errorf("stat input %s: %w", in, err)
		}
		if mt.After(out.ModTime()) {
			return true, nil
		}
	}

	if g.cache == nil {
		return false, nil
	}
	for _, in := range r.Inputs {
		h, err := g.hash(in)
		if err != nil {
			return false, err
		}
		recorded, ok, err := g.cache.RecordedHash(r.Output, in)
		if err != nil {
			return false, err
		}
		if !ok || recorded != h {
			return true, nil
		}
	}
	return false, nil
}

// newestMtime returns a file's mtime, or for a directory input the
// newest mtime of any file underneath it. A UFO source is a directory;
// touching one glif must dirty the weight's binaries.
func (g *Graph) newestMtime(path string) (time.Time, error) {
	fi, err := g.fs.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if !fi.IsDir() {
		return fi.ModTime(), nil
	}
	// Only files count: directory mtimes move on creation and rename,
	// and the content hash already covers those cases.
	var newest time.Time
	err = afero.Walk(g.fs, path, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}

// recordHashes stores the current input hashes after a successful build.
func (g *Graph) recordHashes(r *Rule) error {
	if g.cache == nil {
		return nil
	}
	for _, in := range r.Inputs {
		h, err := g.hash(in)
		if err != nil {
			return err
		}
		if err := g.cache.Record(r.Output, in, h); err != nil {
			return err
		}
	}
	return nil
}

// hash returns the sha256 of a file, memoized for the run. A directory
// hashes as the digest of its sorted relative paths and their file
// hashes, so renames count as changes.
func (g *Graph) hash(path string) (string, error) {
	if h, ok := g.hashMemo[path]; ok {
		return h, nil
	}
	fi, err := g.fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	var h string
	if fi.IsDir() {
		h, err = g.hashDir(path)
	} else {
		h, err = g.hashFile(path)
	}
	if err != nil {
		return "", err
	}
	g.hashMemo[path] = h
	return h, nil
}

func (g *Graph) hashFile(path string) (string, error) {
	f, err := g.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()
	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func (g *Graph) hashDir(dir string) (string, error) {
	type entry struct{ rel, hash string }
	var entries []entry
	err := afero.Walk(g.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		h, err := g.hashFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), hash: h})
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	sum := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(sum, "%s\x00%s\x00", e.rel, e.hash)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
