package openfoodfacts

import (
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

const per100gSuffix = "_100g"

// Product is the subset of an Open Food Facts product the log uses.
type Product struct {
	Code          string         `json:"code"`
	ProductName   string         `json:"product_name"`
	ProductNameEN string         `json:"product_name_en,omitempty"`
	ProductNameDE string         `json:"product_name_de,omitempty"`
	GenericName   string         `json:"generic_name,omitempty"`
	Brands        string         `json:"brands"`
	Nutriments    map[string]any `json:"nutriments"`
}

type productResponse struct {
	Status  int      `json:"status"`
	Product *Product `json:"product"`
}

type searchResponse struct {
	Count    int       `json:"count"`
	Products []Product `json:"products"`
}

// Name picks the first non-empty localized name.
func (p *Product) Name() string {
	for _, n := range []string{p.ProductName, p.ProductNameEN, p.ProductNameDE, p.GenericName} {
		if s := strings.TrimSpace(n); s != "" {
			return s
		}
	}
	return ""
}

// Brand returns the first of the comma separated brands.
func (p *Product) Brand() string {
	first, _, _ := strings.Cut(p.Brands, ",")
	return strings.TrimSpace(first)
}

// MapToRawProducts converts products that carry per-100 g nutriments.
// Products without any are dropped.
func MapToRawProducts(products []Product) []domain.RawProduct {
	out := make([]domain.RawProduct, 0, len(products))
	for i := range products {
		raw, ok := MapToRawProduct(&products[i])
		if !ok {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// MapToRawProduct keeps only the *_100g nutriments. Open Food Facts stores
// those in grams whatever unit the label used, and energy in kcal or kJ.
func MapToRawProduct(p *Product) (domain.RawProduct, bool) {
	payload := domain.RawPayload{}
	for k, v := range p.Nutriments {
		if strings.HasSuffix(k, per100gSuffix) {
			payload[k] = v
		}
	}
	if len(payload) == 0 {
		return domain.RawProduct{}, false
	}

	name := p.Name()
	if name == "" {
		name = "Unknown Product"
	}

	return domain.RawProduct{
		Code:         strings.TrimSpace(p.Code),
		Name:         name,
		Brand:        p.Brand(),
		BaseQuantity: 100,
		BaseUnit:     domain.UnitGram,
		Payload:      payload,
		Units:        domain.SourceUnits{Default: domain.UnitGram},
	}, true
}
