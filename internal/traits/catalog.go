// Package traits holds the fixed catalog of behavioral archetypes that
// every assessment scores against.
package traits

import (
	"fmt"
	"strings"
)

// Code is the stable identifier of an archetype.
type Code = string

const (
	Leader        Code = "leader"
	Warrior       Code = "warrior"
	Strategist    Code = "strategist"
	Diplomat      Code = "diplomat"
	Executor      Code = "executor"
	Individualist Code = "individualist"
	Avoider       Code = "avoider"
)

// Score bounds used by the analysis and aggregation layers.
const (
	MinScore      = 0.0
	MaxScore      = 10.0
	MidpointScore = 5.0
)

// Trait describes one archetype.
type Trait struct {
	Code        Code   `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is an ordered, read-only set of traits. The order is the tie-break
// order for every ranking in the engine.
type Catalog struct {
	traits []Trait
	index  map[Code]int
}

// NewCatalog builds a catalog from the given traits, rejecting empty or
// duplicate codes.
func NewCatalog(ts []Trait) (*Catalog, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one trait")
	}
	c := &Catalog{
		traits: make([]Trait, len(ts)),
		index:  make(map[Code]int, len(ts)),
	}
	for i, t := range ts {
		if t.Code == "" {
			return nil, fmt.Errorf("trait %d has an empty code", i)
		}
		if _, dup := c.index[t.Code]; dup {
			return nil, fmt.Errorf("duplicate trait code %q", t.Code)
		}
		c.traits[i] = t
		c.index[t.Code] = i
	}
	return c, nil
}

var defaultCatalog = mustCatalog([]Trait{
	{
		Code:        Leader,
		Name:        "Leader",
		Description: "Takes responsibility for the group, organizes teammates, speaks up and sets direction under uncertainty.",
	},
	{
		Code:        Warrior,
		Name:        "Warrior",
		Description: "Meets challenges head-on with intensity and physical commitment; fights for every ball and refuses to back down.",
	},
	{
		Code:        Strategist,
		Name:        "Strategist",
		Description: "Reads the situation before acting, weighs options, plans several moves ahead and adapts tactics to the opponent.",
	},
	{
		Code:        Diplomat,
		Name:        "Diplomat",
		Description: "Defuses conflict, mediates between people, looks for compromise and keeps relationships in the team intact.",
	},
	{
		Code:        Executor,
		Name:        "Executor",
		Description: "Follows the plan and instructions reliably, focuses on doing the assigned job well and consistently.",
	},
	{
		Code:        Individualist,
		Name:        "Individualist",
		Description: "Relies on personal skill and own judgement, seeks to decide the moment alone and values self-expression.",
	},
	{
		Code:        Avoider,
		Name:        "Avoider",
		Description: "Withdraws from pressure or confrontation, delays decisions and hands responsibility to others.",
	},
})

func mustCatalog(ts []Trait) *Catalog {
	c, err := NewCatalog(ts)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in seven-archetype catalog.
func Default() *Catalog { return defaultCatalog }

// Len returns the number of traits.
func (c *Catalog) Len() int { return len(c.traits) }

// Traits returns a copy of the traits in catalog order.
func (c *Catalog) Traits() []Trait {
	out := make([]Trait, len(c.traits))
	copy(out, c.traits)
	return out
}

// Codes returns the trait codes in catalog order.
func (c *Catalog) Codes() []Code {
	out := make([]Code, len(c.traits))
	for i, t := range c.traits {
		out[i] = t.Code
	}
	return out
}

// Lookup returns the trait with the given code.
func (c *Catalog) Lookup(code Code) (Trait, bool) {
	i, ok := c.index[code]
	if !ok {
		return Trait{}, false
	}
	return c.traits[i], true
}

// Has reports whether code belongs to the catalog.
func (c *Catalog) Has(code Code) bool {
	_, ok := c.index[code]
	return ok
}

// Position returns the catalog position of code, or -1.
func (c *Catalog) Position(code Code) int {
	if i, ok := c.index[code]; ok {
		return i
	}
	return -1
}

// Describe renders the catalog as a bullet list for oracle prompts.
func (c *Catalog) Describe() string {
	var b strings.Builder
	for _, t := range c.traits {
		fmt.Fprintf(&b, "- %s (%s): %s\n", t.Code, t.Name, t.Description)
	}
	return b.String()
}
