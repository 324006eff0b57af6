// Package species implements the species data gateway: a file-backed catalog
// of normalized creature records and a caching decorator in front of it.
package species

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/types"
)

// ErrNotFound is returned when a record does not exist in the catalog
var ErrNotFound = errors.New("record not found")

// chainRecord is one evolution tree as stored on disk
type chainRecord struct {
	ID    int                 `json:"id"`
	Chain types.EvolutionNode `json:"chain"`
}

// Data is the full in-memory content of a catalog
type Data struct {
	Species   []types.Species
	Moves     []types.Move
	Types     []types.TypeInfo
	Items     []types.Item
	Chains    []types.EvolutionNode
	Locations []types.Location
}

// Catalog serves normalized records from memory
type Catalog struct {
	species   map[int]*types.Species
	moves     map[string]*types.Move
	moveIDs   map[int]*types.Move
	types     map[string]*types.TypeInfo
	items     map[string]*types.Item
	chains    map[int]*types.EvolutionNode
	locations map[string]*types.Location
}

var _ interfaces.SpeciesGateway = (*Catalog)(nil)

// NewCatalog indexes data for lookup
func NewCatalog(data Data) *Catalog {
	c := &Catalog{
		species:   make(map[int]*types.Species, len(data.Species)),
		moves:     make(map[string]*types.Move, len(data.Moves)),
		moveIDs:   make(map[int]*types.Move, len(data.Moves)),
		types:     make(map[string]*types.TypeInfo, len(data.Types)),
		items:     make(map[string]*types.Item, len(data.Items)),
		chains:    make(map[int]*types.EvolutionNode),
		locations: make(map[string]*types.Location, len(data.Locations)),
	}

	for i := range data.Species {
		sp := data.Species[i]
		c.species[sp.ID] = &sp
	}
	for i := range data.Moves {
		m := data.Moves[i]
		if m.Accuracy <= 0 {
			m.Accuracy = 100
		}
		c.moves[normalizeKey(m.Name)] = &m
		if m.ID > 0 {
			c.moveIDs[m.ID] = &m
		}
	}
	for i := range data.Types {
		t := data.Types[i]
		c.types[normalizeKey(t.Name)] = &t
	}
	for i := range data.Items {
		it := data.Items[i]
		c.items[normalizeKey(it.Key)] = &it
	}
	for i := range data.Chains {
		root := data.Chains[i]
		indexChain(c.chains, &root, &root)
	}
	for i := range data.Locations {
		loc := data.Locations[i]
		c.locations[normalizeKey(loc.Name)] = &loc
	}
	return c
}

func indexChain(index map[int]*types.EvolutionNode, root, node *types.EvolutionNode) {
	index[node.SpeciesID] = root
	for i := range node.EvolvesTo {
		indexChain(index, root, &node.EvolvesTo[i])
	}
}

// LoadCatalog reads every data file from basePath
func LoadCatalog(basePath string) (*Catalog, error) {
	var data Data
	var chains []chainRecord

	files := []struct {
		name string
		dst  any
	}{
		{"species.json", &data.Species},
		{"moves.json", &data.Moves},
		{"types.json", &data.Types},
		{"items.json", &data.Items},
		{"evolutions.json", &chains},
		{"locations.json", &data.Locations},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(basePath, f.name), f.dst); err != nil {
			return nil, err
		}
	}
	for _, ch := range chains {
		data.Chains = append(data.Chains, ch.Chain)
	}
	return NewCatalog(data), nil
}

func readJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// GetSpecies retrieves a species by id
func (c *Catalog) GetSpecies(ctx context.Context, id int) (*types.Species, error) {
	sp, ok := c.species[id]
	if !ok {
		return nil, fmt.Errorf("species %d: %w", id, ErrNotFound)
	}
	out := *sp
	out.Types = append([]string(nil), sp.Types...)
	out.Moves = append([]string(nil), sp.Moves...)
	return &out, nil
}

// GetMove retrieves a move by numeric id or name. Type relations of the
// move's type are frozen into the returned record.
func (c *Catalog) GetMove(ctx context.Context, idOrName string) (*types.Move, error) {
	var m *types.Move
	if id, err := strconv.Atoi(idOrName); err == nil {
		m = c.moveIDs[id]
	} else {
		m = c.moves[normalizeKey(idOrName)]
	}
	if m == nil {
		return nil, fmt.Errorf("move %q: %w", idOrName, ErrNotFound)
	}
	out := *m
	out.Effect.StatChanges = append([]types.StatChange(nil), m.Effect.StatChanges...)
	if t, ok := c.types[normalizeKey(m.Type)]; ok {
		out.Relations = copyRelations(t.Relations)
	}
	return &out, nil
}

// GetType retrieves a type with its species roster
func (c *Catalog) GetType(ctx context.Context, name string) (*types.TypeInfo, error) {
	t, ok := c.types[normalizeKey(name)]
	if !ok {
		return nil, fmt.Errorf("type %q: %w", name, ErrNotFound)
	}
	out := *t
	out.Relations = copyRelations(t.Relations)
	out.SpeciesIDs = append([]int(nil), t.SpeciesIDs...)
	return &out, nil
}

// GetEvolutionChain retrieves the whole tree the species belongs to
func (c *Catalog) GetEvolutionChain(ctx context.Context, speciesID int) (*types.EvolutionNode, error) {
	root, ok := c.chains[speciesID]
	if !ok {
		return nil, fmt.Errorf("evolution chain for %d: %w", speciesID, ErrNotFound)
	}
	out := copyNode(*root)
	return &out, nil
}

// GetItem retrieves an item by key
func (c *Catalog) GetItem(ctx context.Context, idOrName string) (*types.Item, error) {
	it, ok := c.items[normalizeKey(idOrName)]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", idOrName, ErrNotFound)
	}
	out := *it
	return &out, nil
}

// GetLocation retrieves an area with its encounter pool
func (c *Catalog) GetLocation(ctx context.Context, name string) (*types.Location, error) {
	loc, ok := c.locations[normalizeKey(name)]
	if !ok {
		return nil, fmt.Errorf("location %q: %w", name, ErrNotFound)
	}
	out := *loc
	out.SpeciesIDs = append([]int(nil), loc.SpeciesIDs...)
	return &out, nil
}

func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

func copyRelations(r types.TypeRelations) types.TypeRelations {
	return types.TypeRelations{
		DoubleTo:   append([]string(nil), r.DoubleTo...),
		HalfTo:     append([]string(nil), r.HalfTo...),
		NoEffectTo: append([]string(nil), r.NoEffectTo...),
	}
}

func copyNode(n types.EvolutionNode) types.EvolutionNode {
	out := n
	out.Details = append([]types.EvolutionDetail(nil), n.Details...)
	out.EvolvesTo = make([]types.EvolutionNode, len(n.EvolvesTo))
	for i, child := range n.EvolvesTo {
		out.EvolvesTo[i] = copyNode(child)
	}
	return out
}
