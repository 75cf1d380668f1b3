package accounts

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cleared-dev/asientos/internal/model"
)

var (
	// ErrUnknownAccount is returned for a code missing from the chart.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrUnknownParent is returned when a parent code is missing from the chart.
	ErrUnknownParent = errors.New("unknown parent account")
	// ErrCycle is returned when a parent assignment would create a loop.
	ErrCycle = errors.New("account hierarchy cycle")
)

// Chart provides in-memory lookup over the chart of accounts. Accounts are
// stored in a flat arena; parent and child links are codes, never pointers.
type Chart struct {
	accounts []model.Account
	byCode   map[string]int
	children map[string][]string
}

// NewChart creates a Chart from a slice of accounts.
func NewChart(accounts []model.Account) *Chart {
	c := &Chart{
		accounts: accounts,
		byCode:   make(map[string]int, len(accounts)),
		children: make(map[string][]string),
	}
	for i, a := range accounts {
		c.byCode[a.Code] = i
		if a.Parent != "" {
			c.children[a.Parent] = append(c.children[a.Parent], a.Code)
		}
	}
	for _, kids := range c.children {
		sort.Strings(kids)
	}
	return c
}

// All returns all accounts.
func (c *Chart) All() []model.Account {
	return c.accounts
}

// Len returns the number of accounts.
func (c *Chart) Len() int {
	return len(c.accounts)
}

// Get returns an account by code.
func (c *Chart) Get(code string) (model.Account, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return model.Account{}, false
	}
	return c.accounts[i], true
}

// Exists reports whether an account code exists.
func (c *Chart) Exists(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Nature returns the nature of the account with the given code.
func (c *Chart) Nature(code string) (model.Nature, error) {
	a, ok := c.Get(code)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	return a.Nature, nil
}

// ByCategory returns all accounts of the given category.
func (c *Chart) ByCategory(cat model.AccountCategory) []model.Account {
	var result []model.Account
	for _, a := range c.accounts {
		if a.Category == cat {
			result = append(result, a)
		}
	}
	return result
}

// Children returns the direct children of code, sorted.
func (c *Chart) Children(code string) []string {
	return c.children[code]
}

// Ancestors returns the parent chain of code, nearest first. The walk stops
// after Len steps so a corrupt hierarchy cannot loop forever.
func (c *Chart) Ancestors(code string) ([]string, error) {
	a, ok := c.Get(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	var out []string
	for steps := 0; a.Parent != ""; steps++ {
		if steps >= len(c.accounts) {
			return nil, fmt.Errorf("%w: walking up from %s", ErrCycle, code)
		}
		parent, ok := c.Get(a.Parent)
		if !ok {
			return nil, fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, a.Parent, a.Code)
		}
		out = append(out, parent.Code)
		a = parent
	}
	return out, nil
}

// Descendants returns every account below code, breadth first.
func (c *Chart) Descendants(code string) []string {
	var out []string
	seen := map[string]bool{code: true}
	queue := append([]string(nil), c.children[code]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, c.children[next]...)
	}
	return out
}

// IsDescendant reports whether candidate sits anywhere below code.
func (c *Chart) IsDescendant(code, candidate string) bool {
	for _, d := range c.Descendants(code) {
		if d == candidate {
			return true
		}
	}
	return false
}

// CheckParent validates that parent may become the parent of code.
func (c *Chart) CheckParent(code, parent string) error {
	if parent == "" {
		return nil
	}
	if parent == code {
		return fmt.Errorf("%w: %s cannot be its own parent", ErrCycle, code)
	}
	if !c.Exists(parent) {
		return fmt.Errorf("%w: %s", ErrUnknownParent, parent)
	}
	if c.IsDescendant(code, parent) {
		return fmt.Errorf("%w: %s is below %s", ErrCycle, parent, code)
	}
	return nil
}
