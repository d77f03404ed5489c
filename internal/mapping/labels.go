package mapping

import (
	"sort"

	"github.com/kosarica/intake-service/internal/parsers/sdt"
)

// Content control labels used by the intake template
const (
	LabelSku                  sdt.Label = "sku"
	LabelProductNameUS        sdt.Label = "productnameus"
	LabelProductNameCA        sdt.Label = "productnameca"
	LabelShortDescriptionUS   sdt.Label = "shortdescriptionus"
	LabelShortDescriptionCA   sdt.Label = "shortdescriptionca"
	LabelLongDescriptionUS    sdt.Label = "longdescriptionus"
	LabelLongDescriptionCA    sdt.Label = "longdescriptionca"
	LabelStamp                sdt.Label = "stamp"
	LabelOffSaleMessage       sdt.Label = "offsalemessage"
	LabelOnSaleDate           sdt.Label = "onsaledate"
	LabelOffSaleDate          sdt.Label = "offsaledate"
	LabelRecommendedProducts  sdt.Label = "recommendedproducts"
	LabelAccessories          sdt.Label = "accessories"
	LabelUnitOfMeasureTitleUS sdt.Label = "unitofmeasuretitleus"
	LabelUnitOfMeasureValueUS sdt.Label = "unitofmeasurevalueus"
	LabelUnitOfMeasureTitleCA sdt.Label = "unitofmeasuretitleca"
	LabelUnitOfMeasureValueCA sdt.Label = "unitofmeasurevalueca"
	LabelSavingsCalloutUS     sdt.Label = "savingscalloutus"
	LabelSavingsCalloutCA     sdt.Label = "savingscalloutca"

	// Labels from the first revision of the template
	LegacyUomTitleUS sdt.Label = "uomtitleus"
	LegacyUomValueUS sdt.Label = "uomvalueus"
	LegacyUomTitleCA sdt.Label = "uomtitleca"
	LegacyUomValueCA sdt.Label = "uomvalueca"
)

type attribute int

const (
	attrSku attribute = iota
	attrProductNameUS
	attrProductNameCA
	attrShortDescriptionUS
	attrShortDescriptionCA
	attrLongDescriptionUS
	attrLongDescriptionCA
	attrStamp
	attrOffSaleMessage
	attrOnSaleDate
	attrOffSaleDate
	attrRecommendations
	attrAccessories
	attrUomTitleUS
	attrUomValueUS
	attrUomTitleCA
	attrUomValueCA
	attrSavingsUS
	attrSavingsCA
)

// fieldTable lists the candidate labels for each attribute in priority order.
// The first candidate with a non-empty cleaned value is used.
var fieldTable = map[attribute][]sdt.Label{
	attrSku:                {LabelSku},
	attrProductNameUS:      {LabelProductNameUS},
	attrProductNameCA:      {LabelProductNameCA},
	attrShortDescriptionUS: {LabelShortDescriptionUS},
	attrShortDescriptionCA: {LabelShortDescriptionCA},
	attrLongDescriptionUS:  {LabelLongDescriptionUS},
	attrLongDescriptionCA:  {LabelLongDescriptionCA},
	attrStamp:              {LabelStamp},
	attrOffSaleMessage:     {LabelOffSaleMessage},
	attrOnSaleDate:         {LabelOnSaleDate},
	attrOffSaleDate:        {LabelOffSaleDate},
	attrRecommendations:    {LabelRecommendedProducts},
	attrAccessories:        {LabelAccessories},
	attrUomTitleUS:         {LabelUnitOfMeasureTitleUS, LegacyUomTitleUS},
	attrUomValueUS:         {LabelUnitOfMeasureValueUS, LegacyUomValueUS},
	attrUomTitleCA:         {LabelUnitOfMeasureTitleCA, LegacyUomTitleCA},
	attrUomValueCA:         {LabelUnitOfMeasureValueCA, LegacyUomValueCA},
	attrSavingsUS:          {LabelSavingsCalloutUS},
	attrSavingsCA:          {LabelSavingsCalloutCA},
}

var vocabulary = func() map[sdt.Label]bool {
	v := make(map[sdt.Label]bool)
	for _, labels := range fieldTable {
		for _, l := range labels {
			v[l] = true
		}
	}
	return v
}()

// Known reports whether label belongs to the template vocabulary
func Known(label sdt.Label) bool {
	return vocabulary[label]
}

// Unmapped returns the labels in raw that no attribute reads, sorted. They are
// reported for template debugging and never persisted.
func Unmapped(raw sdt.RawFieldMap) []sdt.Label {
	var out []sdt.Label
	for label := range raw {
		if !vocabulary[label] {
			out = append(out, label)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
