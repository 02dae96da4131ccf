// Package vendors loads the vendor directory from a YAML file.
//
// The file is a list of vendors:
//
//	- id: acme
//	  name: Acme Outfitters
//	  limits:
//	    concurrency: 2
//	    delayMs: 250
package vendors

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// DefaultFile is looked up when no path is configured.
const DefaultFile = "vendors.yaml"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Directory is a catalog.VendorDirectory backed by a YAML document.
type Directory struct {
	mu      sync.RWMutex
	vendors map[string]catalog.Vendor
}

var _ catalog.VendorDirectory = (*Directory)(nil)

// LoadFile reads the directory at path.
func LoadFile(path string) (*Directory, error) {
	return Load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// Load reads the directory stored under name in fsys.
func Load(fsys fs.FS, name string) (*Directory, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.WrapIO("read", name, err)
	}
	return Parse(data, name)
}

// Parse decodes and validates a vendor list. name only labels errors.
func Parse(data []byte, name string) (*Directory, error) {
	var list []catalog.Vendor
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}

	d := &Directory{vendors: make(map[string]catalog.Vendor, len(list))}
	for i := range list {
		if err := d.Put(list[i]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Get implements catalog.VendorDirectory.
func (d *Directory) Get(_ context.Context, vendorID string) (*catalog.Vendor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.vendors[vendorID]
	if !ok {
		return nil, errors.NewNotFoundError("vendor", vendorID)
	}
	return &v, nil
}

// Put validates v and adds or replaces it.
func (d *Directory) Put(v catalog.Vendor) error {
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Namespace(), fe.Value(), "failed "+fe.Tag()+" check")
		}
		return errors.WrapValidation("vendor", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vendors == nil {
		d.vendors = make(map[string]catalog.Vendor)
	}
	d.vendors[v.ID] = v
	return nil
}

// List returns every vendor ordered by id.
func (d *Directory) List() []catalog.Vendor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]catalog.Vendor, 0, len(d.vendors))
	for _, v := range d.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save writes the directory back to path as YAML.
func (d *Directory) Save(path string) error {
	data, err := yaml.MarshalWithOptions(d.List(), yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
