package industry

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed industries.yaml
var industriesYAML []byte

// Industry is one entry of the fixed industry enumeration.
type Industry struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	SearchTerms []string `yaml:"search_terms" json:"searchTerms"`
}

type catalog struct {
	Industries []Industry `yaml:"industries"`
}

const Other = "overig"

var (
	loadOnce sync.Once
	all      []Industry
	byID     map[string]Industry
	loadErr  error
)

func load() {
	var c catalog
	if err := yaml.Unmarshal(industriesYAML, &c); err != nil {
		loadErr = fmt.Errorf("parse industries.yaml: %w", err)
		return
	}
	all = c.Industries
	byID = make(map[string]Industry, len(all))
	for _, ind := range all {
		byID[ind.ID] = ind
	}
}

// All returns the catalog in file order.
func All() []Industry {
	loadOnce.Do(load)
	if loadErr != nil {
		panic(loadErr)
	}
	out := make([]Industry, len(all))
	copy(out, all)
	return out
}

// Lookup returns the industry with the given id.
func Lookup(id string) (Industry, bool) {
	loadOnce.Do(load)
	if loadErr != nil {
		return Industry{}, false
	}
	ind, ok := byID[strings.ToLower(strings.TrimSpace(id))]
	return ind, ok
}

// Valid reports whether id belongs to the enumeration.
func Valid(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// Normalize maps free text (an id or a label, any case) onto an industry id.
// Unknown or empty values map to "overig".
func Normalize(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Other
	}
	if ind, ok := Lookup(v); ok {
		return ind.ID
	}
	for _, ind := range All() {
		if strings.EqualFold(ind.Label, v) {
			return ind.ID
		}
		for _, term := range ind.SearchTerms {
			if strings.EqualFold(term, v) {
				return ind.ID
			}
		}
	}
	return Other
}

// SearchQuery joins the industry's native search terms with " OR ".
func SearchQuery(id string) string {
	ind, ok := Lookup(id)
	if !ok {
		return ""
	}
	return strings.Join(ind.SearchTerms, " OR ")
}
