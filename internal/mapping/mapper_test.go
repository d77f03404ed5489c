package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/intake-service/internal/parsers/sdt"
)

func TestMapRequiresSku(t *testing.T) {
	tests := []struct {
		name string
		raw  sdt.RawFieldMap
	}{
		{"Empty map", sdt.RawFieldMap{}},
		{"No sku label", sdt.RawFieldMap{"productnameus": "Widget"}},
		{"Blank sku", sdt.RawFieldMap{"sku": "   "}},
		{"Placeholder sku", sdt.RawFieldMap{"sku": "Click or tap here to enter text."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := Map(tt.raw)
			require.Error(t, err)
			assert.Nil(t, draft)
			assert.ErrorIs(t, err, ErrMissingRequiredField)

			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "sku", missing.Field)
			assert.Equal(t, "missing required field: sku", err.Error())
		})
	}
}

func TestMapSkuOnly(t *testing.T) {
	draft, err := Map(sdt.RawFieldMap{"sku": " 12345 "})
	require.NoError(t, err)

	assert.Equal(t, &Draft{
		Sku:             "12345",
		ProductName:     UntitledProduct,
		Recommendations: []string{},
		Accessories:     []Accessory{},
		Cultures:        []Culture{},
	}, draft)
}

func TestMapProductName(t *testing.T) {
	tests := []struct {
		name     string
		raw      sdt.RawFieldMap
		expected string
	}{
		{"US preferred", sdt.RawFieldMap{"sku": "1", "productnameus": "US Name", "productnameca": "CA Name"}, "US Name"},
		{"CA fallback", sdt.RawFieldMap{"sku": "1", "productnameca": "CA Name"}, "CA Name"},
		{"Placeholder US falls back", sdt.RawFieldMap{"sku": "1", "productnameus": "Click or tap here to enter text.", "productnameca": "CA Name"}, "CA Name"},
		{"Untitled", sdt.RawFieldMap{"sku": "1"}, UntitledProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := Map(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, draft.ProductName)
		})
	}
}

func TestMapLegacyLabels(t *testing.T) {
	t.Run("legacy only", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{
			"sku":        "1",
			"uomtitleus": "Count",
			"uomvalueca": "12",
		})
		require.NoError(t, err)
		require.NotNil(t, draft.UomTitleUS)
		assert.Equal(t, "Count", *draft.UomTitleUS)
		require.NotNil(t, draft.UomValueCA)
		assert.Equal(t, "12", *draft.UomValueCA)
	})

	t.Run("current label wins", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{
			"sku":                  "1",
			"unitofmeasuretitleus": "Pack",
			"uomtitleus":           "Count",
		})
		require.NoError(t, err)
		require.NotNil(t, draft.UomTitleUS)
		assert.Equal(t, "Pack", *draft.UomTitleUS)
	})

	t.Run("empty current label falls back", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{
			"sku":                  "1",
			"unitofmeasuretitleca": "",
			"uomtitleca":           "Each",
		})
		require.NoError(t, err)
		require.NotNil(t, draft.UomTitleCA)
		assert.Equal(t, "Each", *draft.UomTitleCA)
	})
}

func TestMapCultures(t *testing.T) {
	t.Run("rows only for filled locales", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{
			"sku":                "1",
			"productnameus":      "Widget",
			"longdescriptionus":  "A long\ndescription",
			"shortdescriptionca": "",
			"productnameca":      "Click or tap here to enter text.",
		})
		require.NoError(t, err)
		require.Len(t, draft.Cultures, 1)

		row := draft.Cultures[0]
		assert.Equal(t, "en-US", row.Code)
		assert.Equal(t, "Widget", *row.Name)
		assert.Nil(t, row.Short)
		assert.Equal(t, "A long description", *row.Long)
	})

	t.Run("both locales", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{
			"sku":                "1",
			"shortdescriptionus": "Short US",
			"shortdescriptionca": "Short CA",
		})
		require.NoError(t, err)
		require.Len(t, draft.Cultures, 2)
		assert.Equal(t, "en-US", draft.Cultures[0].Code)
		assert.Equal(t, "en-CA", draft.Cultures[1].Code)
		assert.Equal(t, "Short US", *draft.ShortDescription)
		assert.Nil(t, draft.LongDescription)
	})

	t.Run("descriptions fall back to CA", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{"sku": "1", "longdescriptionca": "Long CA"})
		require.NoError(t, err)
		require.NotNil(t, draft.LongDescription)
		assert.Equal(t, "Long CA", *draft.LongDescription)
	})

	t.Run("no text no rows", func(t *testing.T) {
		draft, err := Map(sdt.RawFieldMap{"sku": "1", "stamp": "NEW"})
		require.NoError(t, err)
		assert.Empty(t, draft.Cultures)
	})
}

func TestMapListsAndDates(t *testing.T) {
	draft, err := Map(sdt.RawFieldMap{
		"sku":                 "1",
		"recommendedproducts": "34038, 7904,  , 2654",
		"accessories":         "10885H, USB-C Cable, Charger, AB-12.3",
		"onsaledate":          "3/15/2024",
		"offsaledate":         "sometime next quarter",
		"savingscalloutus":    "Save $5",
		"stamp":               "NEW",
		"offsalemessage":      "Gone soon",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"34038", "7904", "2654"}, draft.Recommendations)

	require.Len(t, draft.Accessories, 4)
	assert.Equal(t, "10885H", *draft.Accessories[0].Sku)
	assert.Nil(t, draft.Accessories[0].Label)
	assert.Equal(t, "USB-C Cable", *draft.Accessories[1].Label)
	assert.Equal(t, "Charger", *draft.Accessories[2].Label)
	assert.Equal(t, "AB-12.3", *draft.Accessories[3].Sku)

	assert.Equal(t, "2024-03-15T00:00:00Z", *draft.OnSaleDate)
	assert.Equal(t, "sometime next quarter", *draft.OffSaleDate)
	assert.Equal(t, "Save $5", *draft.SavingsUS)
	assert.Nil(t, draft.SavingsCA)
	assert.Equal(t, "NEW", *draft.Stamp)
	assert.Equal(t, "Gone soon", *draft.OffSaleMessage)
}

func TestUnmapped(t *testing.T) {
	raw := sdt.RawFieldMap{
		"sku":           "1",
		"uomtitleus":    "Count",
		"imageurl":      "/10885h-01-enus.png",
		"memberprice":   "$14.00",
		"productnameus": "Widget",
	}

	assert.Equal(t, []sdt.Label{"imageurl", "memberprice"}, Unmapped(raw))
	assert.Empty(t, Unmapped(sdt.RawFieldMap{"sku": "1"}))
	assert.True(t, Known(LegacyUomTitleUS))
	assert.False(t, Known("imageurl"))
}
