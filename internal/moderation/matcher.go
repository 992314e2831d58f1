package moderation

import "strings"

// matcher finds any of a fixed set of terms inside a text in a single pass.
// Matching is case-insensitive and substring based. It is immutable once
// built and safe for concurrent use.
type matcher struct {
	root  *acNode
	terms []string
}

type acNode struct {
	next map[rune]*acNode
	fail *acNode
	// out holds the index of the shortest term ending here, or -1.
	out int
}

func newACNode() *acNode {
	return &acNode{next: make(map[rune]*acNode), out: -1}
}

func newMatcher(terms []string) *matcher {
	m := &matcher{root: newACNode()}
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		m.insert(t)
	}
	m.link()
	return m
}

func (m *matcher) insert(term string) {
	node := m.root
	for _, r := range term {
		child, ok := node.next[r]
		if !ok {
			child = newACNode()
			node.next[r] = child
		}
		node = child
	}
	if node.out < 0 {
		node.out = len(m.terms)
	}
	m.terms = append(m.terms, term)
}

// link computes failure links breadth first.
func (m *matcher) link() {
	queue := make([]*acNode, 0, len(m.root.next))
	for _, child := range m.root.next {
		child.fail = m.root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for r, child := range node.next {
			queue = append(queue, child)
			f := node.fail
			for f != nil && f.next[r] == nil {
				f = f.fail
			}
			if f == nil {
				child.fail = m.root
			} else {
				child.fail = f.next[r]
			}
			if child.out < 0 {
				child.out = child.fail.out
			}
		}
	}
}

// first returns the first term found in text, scanning left to right.
func (m *matcher) first(text string) (string, bool) {
	if len(m.terms) == 0 {
		return "", false
	}
	node := m.root
	for _, r := range strings.ToLower(text) {
		for node != m.root && node.next[r] == nil {
			node = node.fail
		}
		if child, ok := node.next[r]; ok {
			node = child
		}
		if node.out >= 0 {
			return m.terms[node.out], true
		}
	}
	return "", false
}

func (m *matcher) len() int {
	return len(m.terms)
}
