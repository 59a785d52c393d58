package wildtag

import (
	"errors"
	"fmt"
	"strings"
)

// Category is a domain-level grouping that several raw classifier labels map onto.
type Category struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// CategoryMap is an ordered list of categories. Order matters only for
// iteration; lookups are by substring match.
type CategoryMap []Category

// DefaultAnimalCategories returns the built-in wildlife subject categories.
func DefaultAnimalCategories() CategoryMap {
	return CategoryMap{
		{Name: "ostrich", Keywords: []string{"ostrich", "common_ostrich", "African_ostrich"}},
		{Name: "bird", Keywords: []string{"bird", "crane", "peacock", "hornbill", "vulture", "eagle", "bustard", "stork"}},
		{Name: "elephant", Keywords: []string{"elephant", "African_elephant", "Indian_elephant", "tusker"}},
		{Name: "monkey", Keywords: []string{"monkey", "macaque", "baboon", "chimpanzee", "gorilla", "orangutan", "langur", "colobus"}},
		{Name: "giraffe", Keywords: []string{"giraffe", "reticulated_giraffe"}},
		{Name: "zebra", Keywords: []string{"zebra", "plains_zebra", "Grevy_zebra"}},
		{Name: "lion", Keywords: []string{"lion", "male_lion", "lioness", "African_lion"}},
		{Name: "lion_cub", Keywords: []string{"lion_cub", "cub", "young_lion", "cat_baby"}},
		{Name: "leopard", Keywords: []string{"leopard", "spotted_leopard"}},
		{Name: "cheetah", Keywords: []string{"cheetah", "spotted_cat", "running_cat"}},
		{Name: "buffalo", Keywords: []string{"buffalo", "African_buffalo", "water_buffalo", "cape_buffalo"}},
		{Name: "antelope", Keywords: []string{"antelope", "gazelle", "impala", "kudu", "springbok", "gemsbok", "oryx"}},
		{Name: "wildebeest", Keywords: []string{"wildebeest", "gnu", "blue_wildebeest"}},
		{Name: "hippopotamus", Keywords: []string{"hippopotamus", "hippo", "river_horse"}},
		{Name: "crocodile", Keywords: []string{"crocodile", "Nile_crocodile", "alligator"}},
		{Name: "hyena", Keywords: []string{"hyena", "spotted_hyena", "striped_hyena"}},
	}
}

// DefaultLandscapeCategories returns the built-in scenery categories.
func DefaultLandscapeCategories() CategoryMap {
	return CategoryMap{
		{Name: "river", Keywords: []string{"river", "stream", "waterfall", "waterway", "creek", "rapids"}},
		{Name: "savannah", Keywords: []string{"savannah", "grassland", "plain", "prairie", "veldt", "steppe"}},
		{Name: "forest", Keywords: []string{"forest", "woodland", "jungle", "trees", "rainforest", "grove"}},
		{Name: "bush", Keywords: []string{"bush", "shrubland", "thicket", "scrub", "brush", "undergrowth"}},
		{Name: "mountain", Keywords: []string{"mountain", "hill", "cliff", "ridge", "peak", "highland"}},
		{Name: "wetland", Keywords: []string{"wetland", "marsh", "swamp", "bog", "fen", "mangrove"}},
		{Name: "desert", Keywords: []string{"desert", "dune", "sand", "arid", "wasteland"}},
		{Name: "lake", Keywords: []string{"lake", "pond", "reservoir", "lagoon", "water_body"}},
		{Name: "valley", Keywords: []string{"valley", "gorge", "ravine", "canyon", "depression"}},
	}
}

// matches reports whether any keyword of c is a case-insensitive substring of
// the already-lowercased label.
func (c Category) matches(lowerLabel string) bool {
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(lowerLabel, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Match returns the names of every category whose keywords match label
// (case-insensitive substring). A label may match several categories.
func (m CategoryMap) Match(label string) []string {
	lower := strings.ToLower(label)
	var names []string
	for _, c := range m {
		if c.matches(lower) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Names returns the category names in map order.
func (m CategoryMap) Names() []string {
	names := make([]string, len(m))
	for i, c := range m {
		names[i] = c.Name
	}
	return names
}

// Validate rejects unnamed, duplicate, or keyword-less categories.
func (m CategoryMap) Validate() error {
	seen := make(map[string]bool, len(m))
	for i, c := range m {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("category %d: empty name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("category %q: duplicate name", c.Name)
		}
		seen[c.Name] = true
		if len(c.Keywords) == 0 {
			return fmt.Errorf("category %q: %w", c.Name, errNoKeywords)
		}
	}
	return nil
}

var errNoKeywords = errors.New("no keywords")
