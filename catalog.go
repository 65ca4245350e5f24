package prms

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

//go:embed xml/parameters.xml
var bundledCatalog []byte

// CatalogEntry is the canonical definition of one parameter.
type CatalogEntry struct {
	Name       string
	Metadata   Metadata
	Dimensions DimensionsStructure
}

// Catalog is the reference list of legal parameter definitions. It is
// read-only once loaded; Reload replaces its contents entirely.
type Catalog struct {
	mu      sync.RWMutex
	entries []*CatalogEntry
	index   map[string]int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// LoadCatalog reads a catalog definition document from r.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	c := NewCatalog()
	if err := c.Reload(r); err != nil {
		return nil, err
	}
	return c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the catalog bundled with the package. It is
// parsed on first use.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = LoadCatalog(bytes.NewReader(bundledCatalog))
	})
	return defaultCatalog, defaultCatalogErr
}

type xmlCatalogDimension struct {
	Name    string `xml:"name,attr"`
	Default string `xml:"default"`
}

type xmlCatalogParameter struct {
	Name       string                `xml:"name,attr"`
	Type       string                `xml:"type"`
	Desc       string                `xml:"desc"`
	Help       string                `xml:"help"`
	Units      string                `xml:"units"`
	Model      string                `xml:"model"`
	Minimum    string                `xml:"minimum"`
	Maximum    string                `xml:"maximum"`
	Default    string                `xml:"default"`
	Dimensions []xmlCatalogDimension `xml:"dimensions>dimension"`
	Modules    []string              `xml:"modules>module"`
}

type xmlCatalog struct {
	XMLName    xml.Name              `xml:"parameters"`
	Parameters []xmlCatalogParameter `xml:"parameter"`
}

func (xp xmlCatalogParameter) entry() (*CatalogEntry, error) {
	dt, err := ParseDataType(xp.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog parameter %s", xp.Name)
	}
	e := &CatalogEntry{
		Name: xp.Name,
		Metadata: Metadata{
			Datatype:    dt,
			Units:       strings.TrimSpace(xp.Units),
			Model:       strings.TrimSpace(xp.Model),
			Description: strings.TrimSpace(xp.Desc),
			Help:        strings.TrimSpace(xp.Help),
			Minimum:     xp.Minimum,
			Maximum:     xp.Maximum,
			Default:     xp.Default,
		},
	}
	for _, m := range xp.Modules {
		if m = strings.TrimSpace(m); m != "" {
			e.Metadata.Modules = append(e.Metadata.Modules, m)
		}
	}
	for _, d := range xp.Dimensions {
		size := 0
		if raw := strings.TrimSpace(d.Default); raw != "" {
			if size, err = strconv.Atoi(raw); err != nil {
				return nil, errors.Wrapf(ErrInvalidValue, "catalog parameter %s: dimension %s default %q", xp.Name, d.Name, raw)
			}
		}
		e.Dimensions = append(e.Dimensions, DimensionEntry{Name: d.Name, Size: size})
	}
	return e, nil
}

// Reload replaces the catalog contents with the definitions read from r.
// A name defined more than once keeps its first definition. Reload must
// not run concurrently with readers that expect a stable catalog.
func (c *Catalog) Reload(r io.Reader) error {
	var doc xmlCatalog
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, "failed to decode parameter catalog")
	}
	next := NewCatalog()
	for _, xp := range doc.Parameters {
		e, err := xp.entry()
		if err != nil {
			return err
		}
		if err := next.Add(e); err != nil {
			if errors.Is(err, ErrParameterExists) {
				logger.Debug("duplicate catalog definition ignored", zap.String("parameter", e.Name))
				continue
			}
			return err
		}
	}
	c.mu.Lock()
	c.entries, c.index = next.entries, next.index
	c.mu.Unlock()
	return nil
}

// Add appends a definition. It fails if the name is empty or defined.
func (c *Catalog) Add(e *CatalogEntry) error {
	if e.Name == "" {
		return ErrEmptyName
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[e.Name]; ok {
		return errors.Wrapf(ErrParameterExists, "catalog parameter %s", e.Name)
	}
	c.index[e.Name] = len(c.entries)
	c.entries = append(c.entries, e)
	return nil
}

// Get returns the definition of name.
func (c *Catalog) Get(name string) (*CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "catalog parameter %s", name)
	}
	return c.entries[pos], nil
}

func (c *Catalog) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[name]
	return ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Names returns the defined names in document order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// ParamsForModules returns the sorted names of parameters used by any of
// the given modules.
func (c *Catalog) ParamsForModules(modules ...string) []string {
	want := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		want[m] = struct{}{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, e := range c.entries {
		for _, m := range e.Metadata.Modules {
			if _, ok := want[m]; ok {
				out = append(out, e.Name)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// NewParameter returns an empty parameter initialized from the definition
// of name, with its default dimensions declared.
func (c *Catalog) NewParameter(name string) (*Parameter, Diagnostics, error) {
	e, err := c.Get(name)
	if err != nil {
		return nil, nil, err
	}
	p, err := NewParameter(name, e.Metadata)
	if err != nil {
		return nil, nil, err
	}
	dims, diags, err := e.Dimensions.Dimensions()
	if err != nil {
		return nil, diags, errors.Wrapf(err, "catalog parameter %s", name)
	}
	p.dimensions = dims
	return p, diags, nil
}
