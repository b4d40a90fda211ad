package engine

import (
	"slices"
	"sort"
)

type Ability string

const (
	AbilityPan   Ability = "กระทะ"
	AbilityPot   Ability = "หม้อ"
	AbilityBoard Ability = "เขียง"
)

type AbilitySpec struct {
	Name       Ability
	Verb       string
	Transforms map[string]string // input -> output
}

type Recipe struct {
	Name        string
	Ingredients []string
	Points      int
	TimeBonus   int
}

type LevelSpec struct {
	Number      int
	TargetScore int
	TimeSec     int
	SpawnEvery  int // seconds between conveyor deliveries
}

type derivation struct {
	Ability Ability
	Base    string
}

// Catalog is the fixed game data: abilities, dishes and level table.
// It is read-only once built and safe to share between rooms.
type Catalog struct {
	abilities []AbilitySpec
	recipes   []Recipe
	levels    []LevelSpec

	abilityByName map[Ability]AbilitySpec
	recipeByName  map[string]Recipe
	derived       map[string]derivation
	bases         []string
}

func NewCatalog(abilities []AbilitySpec, recipes []Recipe, levels []LevelSpec) *Catalog {
	c := &Catalog{
		abilities:     abilities,
		levels:        levels,
		abilityByName: make(map[Ability]AbilitySpec, len(abilities)),
		recipeByName:  make(map[string]Recipe, len(recipes)),
		derived:       make(map[string]derivation),
	}

	for _, a := range abilities {
		c.abilityByName[a.Name] = a
		for in, out := range a.Transforms {
			c.derived[out] = derivation{Ability: a.Name, Base: in}
		}
	}

	for _, r := range recipes {
		ings := slices.Clone(r.Ingredients)
		sort.Strings(ings)
		r.Ingredients = ings
		c.recipes = append(c.recipes, r)
		c.recipeByName[r.Name] = r
	}

	seen := map[string]bool{}
	for _, r := range c.recipes {
		for _, ing := range r.Ingredients {
			if _, ok := c.derived[ing]; ok || seen[ing] {
				continue
			}
			seen[ing] = true
			c.bases = append(c.bases, ing)
		}
	}
	sort.Strings(c.bases)
	return c
}

func DefaultCatalog() *Catalog {
	abilities := []AbilitySpec{
		{Name: AbilityPan, Verb: "Frying", Transforms: map[string]string{"🥚": "🍳", "🥩": "🥓"}},
		{Name: AbilityPot, Verb: "Boiling", Transforms: map[string]string{"🦐": "🦞", "🥔": "🍟"}},
		{Name: AbilityBoard, Verb: "Chopping", Transforms: map[string]string{"🥬": "🥗", "🥕": "🥒", "🐟": "🍣"}},
	}

	recipes := []Recipe{
		{Name: "สลัดผัก", Ingredients: []string{"🥬", "🍅", "🥕"}, Points: 50, TimeBonus: 10},
		{Name: "สปาเก็ตตี้", Ingredients: []string{"🍝", "🥫", "🥩"}, Points: 110, TimeBonus: 16},
		{Name: "ไอศกรีม", Ingredients: []string{"🍨", "🍒"}, Points: 35, TimeBonus: 7},
		{Name: "ผลไม้รวม", Ingredients: []string{"🍓", "🍌", "🍎"}, Points: 30, TimeBonus: 5},

		{Name: "ซีฟู้ดต้ม", Ingredients: []string{"🦞", "🍄", "🌶️"}, Points: 200, TimeBonus: 22},
		{Name: "ไก่ทอด", Ingredients: []string{"🍗", "🍟"}, Points: 60, TimeBonus: 10},
		{Name: "อาหารเช้าชุดใหญ่", Ingredients: []string{"🍳", "🍞", "🍄"}, Points: 170, TimeBonus: 20},
		{Name: "สเต็กแอนด์ฟรายส์", Ingredients: []string{"🥓", "🥕", "🍄"}, Points: 210, TimeBonus: 24},
		{Name: "ซูชิ", Ingredients: []string{"🍣", "🥬"}, Points: 130, TimeBonus: 18},
		{Name: "สลัดสุขภาพ", Ingredients: []string{"🥗", "🥕", "🍅"}, Points: 160, TimeBonus: 18},
		{Name: "ส้มตำ", Ingredients: []string{"🥗", "🌶️", "🍅", "🥜"}, Points: 140, TimeBonus: 19},
	}

	levels := []LevelSpec{
		{Number: 1, TargetScore: 300, TimeSec: 120, SpawnEvery: 4},
		{Number: 2, TargetScore: 475, TimeSec: 110, SpawnEvery: 3},
		{Number: 3, TargetScore: 750, TimeSec: 100, SpawnEvery: 3},
	}

	return NewCatalog(abilities, recipes, levels)
}

// Abilities returns the abilities in deal order.
func (c *Catalog) Abilities() []AbilitySpec { return c.abilities }

func (c *Catalog) Recipes() []Recipe { return c.recipes }

func (c *Catalog) Ability(name Ability) (AbilitySpec, bool) {
	a, ok := c.abilityByName[name]
	return a, ok
}

func (c *Catalog) Recipe(name string) (Recipe, bool) {
	r, ok := c.recipeByName[name]
	return r, ok
}

func (c *Catalog) Level(n int) (LevelSpec, bool) {
	for _, l := range c.levels {
		if l.Number == n {
			return l, true
		}
	}
	return LevelSpec{}, false
}

func (c *Catalog) FinalLevel() int {
	final := 0
	for _, l := range c.levels {
		final = max(final, l.Number)
	}
	return final
}

// Derivation reports which ability produces ing and from which base
// ingredient. ok is false for base ingredients.
func (c *Catalog) Derivation(ing string) (ability Ability, base string, ok bool) {
	d, ok := c.derived[ing]
	return d.Ability, d.Base, ok
}

// BaseOf maps a derived ingredient to its base; base ingredients map to themselves.
func (c *Catalog) BaseOf(ing string) string {
	if d, ok := c.derived[ing]; ok {
		return d.Base
	}
	return ing
}

// BaseIngredients lists every non-derived ingredient used by some recipe.
func (c *Catalog) BaseIngredients() []string { return c.bases }
