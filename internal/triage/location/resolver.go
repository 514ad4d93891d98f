// Package location resolves free-text building mentions to canonical
// building identifiers. The alias table is data, not code: deployments ship
// their own campus table as YAML and fall back to the compiled-in default.
package location

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Confidence grades how much of the location one resolution captured.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // building and room in one pattern
	ConfidenceMedium Confidence = "medium" // building only
	ConfidenceLow    Confidence = "low"    // nothing usable
)

// Building is one canonical building with its routing code and known aliases.
type Building struct {
	Name    string   `yaml:"name"`
	Code    string   `yaml:"code"`
	Aliases []string `yaml:"aliases"`
}

// Match is the outcome of resolving one message.
type Match struct {
	BuildingName string
	RoomNumber   string
	Confidence   Confidence
}

// Tokens shorter than this never participate in fuzzy matching; two- and
// three-letter words collide with too many aliases.
const minFuzzyLen = 4

// Resolver matches message text against the alias table.
type Resolver struct {
	buildings []Building
	byKey     map[string]*Building
}

// NewResolver builds a resolver over the given table. Canonical names are
// registered as aliases of themselves, which makes canonicalization
// idempotent by construction.
func NewResolver(buildings []Building) *Resolver {
	r := &Resolver{
		buildings: buildings,
		byKey:     make(map[string]*Building),
	}
	for i := range r.buildings {
		b := &r.buildings[i]
		r.byKey[normalizeKey(b.Name)] = b
		for _, alias := range b.Aliases {
			r.byKey[normalizeKey(alias)] = b
		}
	}
	return r
}

// Default returns a resolver over the compiled-in campus table.
func Default() *Resolver {
	return NewResolver(defaultBuildings)
}

// Load reads a building table from YAML. An empty path returns the default
// table.
func Load(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read building alias table: %w", err)
	}

	var doc struct {
		Buildings []Building `yaml:"buildings"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse building alias table: %w", err)
	}
	if len(doc.Buildings) == 0 {
		return nil, fmt.Errorf("building alias table %s contains no buildings", path)
	}

	return NewResolver(doc.Buildings), nil
}

var defaultBuildings = []Building{
	{Name: "Tang Hall", Code: "TANG", Aliases: []string{"tang"}},
	{Name: "Simmons Hall", Code: "SIMM", Aliases: []string{"simmons", "the sponge"}},
	{Name: "Baker House", Code: "BAKR", Aliases: []string{"baker"}},
	{Name: "Maple House", Code: "MAPL", Aliases: []string{"maple"}},
	{Name: "MacGregor House", Code: "MACG", Aliases: []string{"macgregor", "mac g"}},
	{Name: "Burton-Conner House", Code: "BURC", Aliases: []string{"burton conner", "burton", "bc"}},
	{Name: "Next House", Code: "NEXT", Aliases: []string{"next house"}},
	{Name: "Random Hall", Code: "RAND", Aliases: []string{"random"}},
	{Name: "New Vassar", Code: "NVAS", Aliases: []string{"vassar", "new vassar"}},
	{Name: "East Campus", Code: "EAST", Aliases: []string{"east campus", "ec"}},
}

// roomTokenRe matches a unit designator like 301, 12B, or 0442.
const roomToken = `([0-9]{1,4}[a-zA-Z]?)`

var (
	roomKeywordRe = regexp.MustCompile(`(?i)\b(?:room|rm\.?|unit|apt\.?|apartment|suite)\s*#?\s*` + roomToken + `\b`)
	bareNumberRe  = regexp.MustCompile(`\b` + roomToken + `\b`)
)

// Resolve applies the pattern families in order:
//  1. building alias followed by a room token ("tang 301", "maple house room 12B")
//  2. room keyword then building ("room 301 in tang hall")
//  3. building alias alone
//  4. fuzzy substring fallback on long tokens
func (r *Resolver) Resolve(text string) Match {
	lowered := strings.ToLower(strings.ReplaceAll(text, "-", " "))

	building, buildingIdx := r.findBuilding(lowered)
	if building == nil {
		return Match{Confidence: ConfidenceLow}
	}

	if room := r.roomNear(lowered, building, buildingIdx); room != "" {
		return Match{
			BuildingName: building.Name,
			RoomNumber:   strings.ToUpper(room),
			Confidence:   ConfidenceHigh,
		}
	}

	return Match{BuildingName: building.Name, Confidence: ConfidenceMedium}
}

// Canonicalize maps a building name or alias to its canonical entry.
// Resolving an already-canonical name returns it unchanged.
func (r *Resolver) Canonicalize(name string) (Building, bool) {
	if b, ok := r.byKey[normalizeKey(name)]; ok {
		return *b, true
	}

	// Fuzzy fallback for longer inputs only. Longest alias wins, ties break
	// lexicographically, so the result is stable across map iteration order.
	key := normalizeKey(name)
	if len(key) >= minFuzzyLen {
		var (
			best    *Building
			bestKey string
		)
		for aliasKey, b := range r.byKey {
			if len(aliasKey) < minFuzzyLen {
				continue
			}
			if !strings.Contains(aliasKey, key) && !strings.Contains(key, aliasKey) {
				continue
			}
			if best == nil || len(aliasKey) > len(bestKey) ||
				(len(aliasKey) == len(bestKey) && aliasKey < bestKey) {
				best, bestKey = b, aliasKey
			}
		}
		if best != nil {
			return *best, true
		}
	}

	return Building{}, false
}

// findBuilding locates the earliest alias occurrence, preferring longer
// aliases so "burton conner" wins over "burton".
func (r *Resolver) findBuilding(lowered string) (*Building, int) {
	var found *Building
	foundIdx := -1
	foundLen := 0

	for key, b := range r.byKey {
		idx := indexWord(lowered, key)
		if idx < 0 {
			continue
		}
		if foundIdx == -1 || idx < foundIdx || (idx == foundIdx && len(key) > foundLen) {
			found = b
			foundIdx = idx
			foundLen = len(key)
		}
	}
	if found != nil {
		return found, foundIdx
	}

	// Fuzzy fallback: any sufficiently long token contained in an alias.
	// Longest alias wins, ties break lexicographically, so the result is
	// stable across map iteration order.
	for _, token := range strings.Fields(lowered) {
		token = strings.Trim(token, ".,!?;:'\"")
		if len(token) < minFuzzyLen {
			continue
		}
		var (
			best    *Building
			bestKey string
		)
		for key, b := range r.byKey {
			if len(key) < minFuzzyLen || !strings.Contains(key, token) {
				continue
			}
			if best == nil || len(key) > len(bestKey) ||
				(len(key) == len(bestKey) && key < bestKey) {
				best, bestKey = b, key
			}
		}
		if best != nil {
			return best, strings.Index(lowered, token)
		}
	}

	return nil, -1
}

// roomNear extracts a room number associated with the matched building.
func (r *Resolver) roomNear(lowered string, b *Building, buildingIdx int) string {
	// "room 301", "unit 12B", anywhere in the message.
	if m := roomKeywordRe.FindStringSubmatch(lowered); m != nil {
		return m[1]
	}

	// A bare number only counts when it directly follows the building
	// mention, as in "tang 301" or "tang hall, 301". A number further into
	// the sentence ("tang is 40 degrees") is not a room.
	after := lowered[buildingIdx+aliasSpan(lowered[buildingIdx:], b):]
	for _, tok := range strings.Fields(after) {
		tok = strings.Trim(tok, ".,!?;:#")
		if tok == "hall" || tok == "house" || tok == "" {
			continue
		}
		if m := bareNumberRe.FindStringSubmatch(tok); m != nil && m[0] == tok {
			return m[1]
		}
		break
	}

	return ""
}

// aliasSpan returns the length of the longest alias of b that begins at the
// start of after. Zero when the match came from the fuzzy fallback and no
// alias literally appears there.
func aliasSpan(after string, b *Building) int {
	span := 0
	check := func(key string) {
		if len(key) > span && strings.HasPrefix(after, key) {
			span = len(key)
		}
	}
	check(normalizeKey(b.Name))
	for _, alias := range b.Aliases {
		check(normalizeKey(alias))
	}
	return span
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// indexWord finds needle in haystack at a word boundary.
func indexWord(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	search := haystack
	offset := 0
	for {
		idx := strings.Index(search, needle)
		if idx < 0 {
			return -1
		}
		absIdx := offset + idx
		if boundedAt(haystack, absIdx, len(needle)) {
			return absIdx
		}
		offset = absIdx + 1
		search = haystack[offset:]
	}
}

func boundedAt(s string, idx, length int) bool {
	if idx > 0 && isWordChar(s[idx-1]) {
		return false
	}
	end := idx + length
	if end < len(s) && isWordChar(s[end]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
