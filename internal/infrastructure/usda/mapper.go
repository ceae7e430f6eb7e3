package usda

import (
	"strconv"
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

// Food is one item from the FoodData Central search API.
type Food struct {
	FdcID       int        `json:"fdcId"`
	Description string     `json:"description"`
	DataType    string     `json:"dataType"`
	BrandOwner  string     `json:"brandOwner,omitempty"`
	BrandName   string     `json:"brandName,omitempty"`
	GtinUpc     string     `json:"gtinUpc,omitempty"`
	Nutrients   []Nutrient `json:"foodNutrients"`
}

// Nutrient is a single nutrient value, per 100 g of food.
type Nutrient struct {
	NutrientID     int     `json:"nutrientId"`
	NutrientName   string  `json:"nutrientName"`
	NutrientNumber string  `json:"nutrientNumber,omitempty"`
	UnitName       string  `json:"unitName"`
	Value          float64 `json:"value"`
}

// SearchResponse represents the response from the search endpoint.
type SearchResponse struct {
	Foods       []Food `json:"foods"`
	TotalHits   int    `json:"totalHits"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
}

// USDA Nutrient IDs for key macronutrients
const (
	NutrientIDEnergy       = 1008 // Calories (kcal)
	NutrientIDProtein      = 1003 // Protein (g)
	NutrientIDCarbohydrate = 1005 // Carbohydrates (g)
	NutrientIDTotalFat     = 1004 // Total Fat (g)
)

var macroKeys = map[int]string{
	NutrientIDEnergy:       "calories",
	NutrientIDProtein:      "protein",
	NutrientIDCarbohydrate: "carbs",
	NutrientIDTotalFat:     "fat",
}

// FDC ids for the tracked micronutrients. Where FDC has several candidates
// (total vs NLEA sugars, folate vs folic acid) the first listed wins.
var nutrientKeys = []struct {
	fdcID int
	id    domain.NutrientID
}{
	{2000, domain.Sugar},
	{1063, domain.Sugar},
	{1079, domain.Fiber},
	{1258, domain.SaturatedFat},
	{1292, domain.MonounsaturatedFat},
	{1293, domain.PolyunsaturatedFat},
	{1093, domain.Sodium},
	{1092, domain.Potassium},
	{1088, domain.Chloride},
	{1057, domain.Caffeine},
	{1051, domain.Water},
	{1106, domain.VitaminA},
	{1165, domain.Thiamin},
	{1166, domain.Riboflavin},
	{1175, domain.VitaminB6},
	{1178, domain.VitaminB12},
	{1176, domain.Biotin},
	{1177, domain.FolicAcid},
	{1186, domain.FolicAcid},
	{1167, domain.Niacin},
	{1170, domain.PantothenicAcid},
	{1162, domain.VitaminC},
	{1114, domain.VitaminD},
	{1109, domain.VitaminE},
	{1185, domain.VitaminK},
	{1087, domain.Calcium},
	{1090, domain.Magnesium},
	{1095, domain.Zinc},
	{1096, domain.Chromium},
	{1102, domain.Molybdenum},
	{1100, domain.Iodine},
	{1103, domain.Selenium},
	{1091, domain.Phosphorus},
	{1101, domain.Manganese},
	{1089, domain.Iron},
	{1098, domain.Copper},
}

// MapToRawProducts converts search hits into raw products declared per
// 100 g. Every value carries the unit FDC reported for it.
func MapToRawProducts(foods []Food) []domain.RawProduct {
	products := make([]domain.RawProduct, 0, len(foods))
	for i := range foods {
		products = append(products, MapToRawProduct(&foods[i]))
	}
	return products
}

// MapToRawProduct converts a single FDC food.
func MapToRawProduct(food *Food) domain.RawProduct {
	payload, units := extractNutrients(food.Nutrients)

	code := strings.TrimSpace(food.GtinUpc)
	if code == "" {
		code = strconv.Itoa(food.FdcID)
	}

	return domain.RawProduct{
		Code:         code,
		Name:         strings.TrimSpace(food.Description),
		Brand:        firstNonEmpty(food.BrandName, food.BrandOwner),
		BaseQuantity: 100,
		BaseUnit:     domain.UnitGram,
		Payload:      payload,
		Units:        domain.SourceUnits{Default: domain.UnitGram, Keys: units},
	}
}

// extractNutrients builds a payload keyed by canonical nutrient ids plus the
// four macro keys, along with the per-key unit FDC declared.
func extractNutrients(list []Nutrient) (domain.RawPayload, map[string]domain.Unit) {
	payload := domain.RawPayload{}
	units := map[string]domain.Unit{}

	byID := make(map[int]Nutrient, len(list))
	for _, n := range list {
		byID[n.NutrientID] = n
	}

	for fdcID, key := range macroKeys {
		if n, ok := byID[fdcID]; ok {
			payload[key] = n.Value
		}
	}

	for _, nk := range nutrientKeys {
		key := string(nk.id)
		if _, done := payload[key]; done {
			continue
		}
		n, ok := byID[nk.fdcID]
		if !ok {
			continue
		}
		payload[key] = n.Value
		if u := domain.ParseUnit(n.UnitName); u != "" {
			units[key] = u
		}
	}

	return payload, units
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
