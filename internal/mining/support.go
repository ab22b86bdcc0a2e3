package mining

import "github.com/Benny93/sgindex/internal/pattern"

// SupportCounter accumulates, per pattern, the number of graphs that
// contain it. Patterns are remembered in the order they were first merged.
type SupportCounter struct {
	graphs  int
	support map[pattern.Pattern]int
	order   []pattern.Pattern
}

// NewSupportCounter creates an empty accumulator.
func NewSupportCounter() *SupportCounter {
	return &SupportCounter{support: make(map[pattern.Pattern]int)}
}

// Merge adds one graph's pattern set.
func (c *SupportCounter) Merge(set *GraphPatterns) {
	c.graphs++
	for _, p := range set.Patterns() {
		if _, ok := c.support[p]; !ok {
			c.order = append(c.order, p)
		}
		c.support[p]++
	}
}

// Graphs returns the number of merged graphs.
func (c *SupportCounter) Graphs() int {
	return c.graphs
}

// Support returns the number of merged graphs containing p.
func (c *SupportCounter) Support(p pattern.Pattern) int {
	return c.support[p]
}

// Len returns the number of distinct patterns seen.
func (c *SupportCounter) Len() int {
	return len(c.order)
}

// Patterns returns every pattern seen, in first-merged order.
func (c *SupportCounter) Patterns() []pattern.Pattern {
	return c.order
}
