package remote

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/identity"
	"github.com/agentstation/catalogsync/pkg/sources"
)

// Product is one record of the remote product API.
type Product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description,omitempty"`
	Permalink        string  `json:"permalink"`
	Status           string  `json:"status"`
	Featured         bool    `json:"featured"`
	Price            Amount  `json:"price"`
	RegularPrice     Amount  `json:"regular_price"`
	SalePrice        Amount  `json:"sale_price"`
	Images           []Image `json:"images"`
	Categories       []Term  `json:"categories"`
	Tags             []Term  `json:"tags"`
}

// Image is a product image.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Term is a category or tag reference.
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Amount is a price the API may send as a JSON string ("19.99", "") or
// as a number.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(sources.ParsePrice(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Ref returns the product id as a source reference.
func (p *Product) Ref() string {
	return strconv.FormatInt(p.ID, 10)
}

// HasImage reports whether the product lists at least one usable image.
func (p *Product) HasImage() bool {
	for _, img := range p.Images {
		if img.Src != "" {
			return true
		}
	}
	return false
}

// Filter selects which products an import keeps. Unset flags do not filter.
type Filter struct {
	OnlyPublished  bool
	OnlyFeatured   bool
	OnlyWithImages bool
}

// Keep reports whether p passes every enabled flag.
func (f Filter) Keep(p *Product) bool {
	if f.OnlyPublished && p.Status != constants.PublishedStatus {
		return false
	}
	if f.OnlyFeatured && !p.Featured {
		return false
	}
	if f.OnlyWithImages && !p.HasImage() {
		return false
	}
	return true
}

// FilterProducts returns the products that pass f, in their original order.
func FilterProducts(products []Product, f Filter) []Product {
	kept := make([]Product, 0, len(products))
	for i := range products {
		if f.Keep(&products[i]) {
			kept = append(kept, products[i])
		}
	}
	return kept
}

// ToCandidate maps a product onto the source-agnostic candidate shape.
func ToCandidate(p *Product) catalog.Candidate {
	category := constants.UncategorizedCategory
	if len(p.Categories) > 0 && p.Categories[0].Name != "" {
		category = p.Categories[0].Name
	}

	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0].Src
	}

	price := float64(p.RegularPrice)
	if price == 0 {
		price = float64(p.Price)
	}
	if p.SalePrice > 0 {
		price = float64(p.SalePrice)
	}

	metadata := catalog.Metadata{
		"remoteId": p.ID,
		"slug":     p.Slug,
		"status":   p.Status,
		"featured": p.Featured,
	}
	if len(p.Tags) > 0 {
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, t.Name)
		}
		metadata["tags"] = tags
	}

	return catalog.Candidate{
		SourceRef:      p.Ref(),
		Title:          p.Name,
		Description:    p.Description,
		RawURL:         p.Permalink,
		IdentityKey:    identity.Normalize(p.Permalink),
		Category:       category,
		ImageURL:       image,
		Price:          price,
		SalePrice:      float64(p.SalePrice),
		SourceMetadata: metadata,
	}
}

// toBatch converts products, reporting the ones that cannot be imported.
func toBatch(products []Product) *sources.Batch {
	batch := &sources.Batch{Source: sources.RemoteID}
	for i := range products {
		p := &products[i]
		ref := "product " + p.Ref()
		switch {
		case p.Name == "":
			batch.Skipped = append(batch.Skipped, sources.Skip{Ref: ref, Reason: "missing name"})
		case identity.Normalize(p.Permalink) == "":
			batch.Skipped = append(batch.Skipped, sources.Skip{Ref: ref, Reason: "missing permalink"})
		default:
			batch.Candidates = append(batch.Candidates, ToCandidate(p))
		}
	}
	return batch
}
