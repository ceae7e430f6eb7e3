package usda

import (
	"testing"

	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/usecase"
)

func TestMapToRawProduct(t *testing.T) {
	tests := []struct {
		name      string
		food      *Food
		wantCode  string
		wantBrand string
		wantKeys  map[string]float64
		wantUnits map[string]domain.Unit
	}{
		{
			name: "complete food data",
			food: &Food{
				FdcID:       12345,
				Description: "Whole Milk",
				DataType:    "Survey (FNDDS)",
				Nutrients: []Nutrient{
					{NutrientID: NutrientIDEnergy, NutrientName: "Energy", Value: 149.0, UnitName: "KCAL"},
					{NutrientID: NutrientIDProtein, NutrientName: "Protein", Value: 7.7, UnitName: "G"},
					{NutrientID: NutrientIDCarbohydrate, NutrientName: "Carbohydrate", Value: 11.7, UnitName: "G"},
					{NutrientID: NutrientIDTotalFat, NutrientName: "Total Fat", Value: 7.9, UnitName: "G"},
					{NutrientID: 1093, NutrientName: "Sodium, Na", Value: 43, UnitName: "MG"},
					{NutrientID: 1114, NutrientName: "Vitamin D (D2 + D3)", Value: 1.3, UnitName: "UG"},
				},
			},
			wantCode: "12345",
			wantKeys: map[string]float64{
				"calories": 149.0, "protein": 7.7, "carbs": 11.7, "fat": 7.9,
				"sodium": 43, "vitamin_d": 1.3,
			},
			wantUnits: map[string]domain.Unit{
				"sodium":    domain.UnitMilligram,
				"vitamin_d": domain.UnitMicrogram,
			},
		},
		{
			name: "branded food uses gtin and brand",
			food: &Food{
				FdcID:       67890,
				Description: " Greek Yogurt ",
				BrandOwner:  "Dairy Co",
				GtinUpc:     "0123456789012",
				Nutrients: []Nutrient{
					{NutrientID: NutrientIDEnergy, Value: 97},
				},
			},
			wantCode:  "0123456789012",
			wantBrand: "Dairy Co",
			wantKeys:  map[string]float64{"calories": 97},
		},
		{
			name: "first sugar candidate wins",
			food: &Food{
				FdcID:       11111,
				Description: "Apple",
				Nutrients: []Nutrient{
					{NutrientID: 1063, Value: 9.9, UnitName: "G"},
					{NutrientID: 2000, Value: 10.4, UnitName: "G"},
				},
			},
			wantCode: "11111",
			wantKeys: map[string]float64{"sugar": 10.4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapToRawProduct(tt.food)

			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Brand != tt.wantBrand {
				t.Errorf("Brand = %q, want %q", got.Brand, tt.wantBrand)
			}
			if got.BaseQuantity != 100 || got.BaseUnit != domain.UnitGram {
				t.Errorf("base = %v %s, want 100 g", got.BaseQuantity, got.BaseUnit)
			}
			if len(got.Payload) != len(tt.wantKeys) {
				t.Errorf("payload has %d keys, want %d: %v", len(got.Payload), len(tt.wantKeys), got.Payload)
			}
			for k, want := range tt.wantKeys {
				if got.Payload[k] != want {
					t.Errorf("Payload[%s] = %v, want %v", k, got.Payload[k], want)
				}
			}
			for k, want := range tt.wantUnits {
				if got.Units.Keys[k] != want {
					t.Errorf("Units[%s] = %q, want %q", k, got.Units.Keys[k], want)
				}
			}
		})
	}
}

func TestMapToRawProduct_NormalizesToCanonicalUnits(t *testing.T) {
	food := &Food{
		FdcID:       1,
		Description: "Fortified Cereal",
		Nutrients: []Nutrient{
			{NutrientID: NutrientIDEnergy, Value: 380, UnitName: "KCAL"},
			{NutrientID: NutrientIDProtein, Value: 8, UnitName: "G"},
			{NutrientID: NutrientIDCarbohydrate, Value: 84, UnitName: "G"},
			{NutrientID: NutrientIDTotalFat, Value: 2, UnitName: "G"},
			{NutrientID: 1089, Value: 18, UnitName: "MG"},
			{NutrientID: 1178, Value: 6, UnitName: "UG"},
		},
	}

	p := MapToRawProduct(food)
	ref, present := usecase.BuildReference(p.Name, p.BaseQuantity, p.BaseUnit, p.Payload, p.Units, domain.SourceDatabase)

	if present != 4 {
		t.Fatalf("present = %d, want 4", present)
	}
	if ref.Macros.Calories != 380 {
		t.Errorf("Calories = %v, want 380", ref.Macros.Calories)
	}
	if got := ref.Nutrients.Get(domain.Iron); got != 18 {
		t.Errorf("iron = %v mg, want 18", got)
	}
	if got := ref.Nutrients.Get(domain.VitaminB12); got != 6 {
		t.Errorf("vitamin_b12 = %v µg, want 6", got)
	}
}

func TestMapToRawProducts(t *testing.T) {
	foods := []Food{
		{FdcID: 1, Description: "A"},
		{FdcID: 2, Description: "B"},
	}

	got := MapToRawProducts(foods)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "A" || got[1].Code != "2" {
		t.Errorf("unexpected mapping: %+v", got)
	}
}
