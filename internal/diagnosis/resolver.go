package diagnosis

import "github.com/p-n-ai/pai-gapfinder/internal/curriculum"

// Unbounded asks Resolve for the full transitive closure.
const Unbounded = -1

type frame struct {
	code  string
	depth int
}

// Resolve returns every topic reachable from start by following prerequisite
// edges, at most maxDepth edges away (or all of them for Unbounded). The
// start topic is never included, each topic appears once, and the order is
// deterministic for a given catalogue.
//
// The walk uses an explicit stack: a topic is appended when first discovered
// from its parent, children are pushed in listed order and popped last-in
// first-out. Each topic is expanded at most once, which bounds the walk even
// when the catalogue has cycles. Codes that do not resolve are skipped.
func Resolve(cat *curriculum.Catalogue, start string, maxDepth int) []curriculum.TopicNode {
	var result []curriculum.TopicNode
	discovered := map[string]bool{start: true}
	expanded := make(map[string]bool)
	stack := []frame{{code: start, depth: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if expanded[f.code] {
			continue
		}
		// Left unmarked so a shorter path can still expand it.
		if maxDepth != Unbounded && f.depth >= maxDepth {
			continue
		}
		expanded[f.code] = true

		r := cat.Resolve(f.code)
		if !r.Found {
			continue
		}

		for _, code := range r.Node.PrerequisiteCodes {
			if !discovered[code] {
				discovered[code] = true
				if p := cat.Resolve(code); p.Found {
					result = append(result, p.Node)
				}
			}
			if !expanded[code] {
				stack = append(stack, frame{code: code, depth: f.depth + 1})
			}
		}
	}

	return result
}

// FindCycles reports the topics at which a prerequisite edge closes a cycle
// within the region Resolve would walk from start. Each topic is reported
// once, in the order the cycles are found.
func FindCycles(cat *curriculum.Catalogue, start string, maxDepth int) []string {
	const (
		white = iota
		grey
		black
	)
	type cframe struct {
		code    string
		depth   int
		next    int
		prereqs []string
	}

	color := make(map[string]int)
	reported := make(map[string]bool)
	var cycles []string

	enter := func(code string, depth int) (cframe, bool) {
		r := cat.Resolve(code)
		if !r.Found {
			return cframe{}, false
		}
		color[code] = grey
		var prereqs []string
		if maxDepth == Unbounded || depth < maxDepth {
			prereqs = r.Node.PrerequisiteCodes
		}
		return cframe{code: code, depth: depth, prereqs: prereqs}, true
	}

	root, ok := enter(start, 0)
	if !ok {
		return nil
	}
	stack := []cframe{root}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.prereqs) {
			color[top.code] = black
			stack = stack[:len(stack)-1]
			continue
		}
		code := top.prereqs[top.next]
		top.next++

		switch color[code] {
		case grey:
			if !reported[code] {
				reported[code] = true
				cycles = append(cycles, code)
			}
		case white:
			if f, ok := enter(code, top.depth+1); ok {
				stack = append(stack, f)
			}
		}
	}

	return cycles
}
