// Package testing provides shared fixtures for rebalancer tests.
package testing

import (
	"bytes"
	"fmt"

	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/xuri/excelize/v2"
)

// Holdings sheet headers as exported by the brokerage spreadsheet
const (
	HeaderAsset       = "ATIVO"
	HeaderMarketValue = "PATRIMÔNIO ATUAL"
	HeaderReturn      = "RENTABILIDADE"
	HeaderResult      = "RESULTADO"
	HeaderQuantity    = "QUANTIDADE"
)

// UnmatchedAssetID is held in NewHoldingFixtures but absent from NewTargetFixtures
const UnmatchedAssetID = "PETR4"

// NewTargetFixtures returns a three-asset target set whose weights sum to 1
func NewTargetFixtures() []rebalancing.AssetTarget {
	return []rebalancing.AssetTarget{
		{Category: "Renda Fixa", AssetID: "B5P211", TargetWeight: 0.5},
		{Category: "Exterior", AssetID: "IVVB11", TargetWeight: 0.3},
		{Category: "Ações", AssetID: "DIVO11", TargetWeight: 0.2},
	}
}

// NewHoldingFixtures returns holdings for NewTargetFixtures worth 10000 in total,
// plus one holding outside the targets.
//
// With a contribution of 1000, IVVB11 receives 866.67 and DIVO11 133.33.
func NewHoldingFixtures() []rebalancing.RawHolding {
	return []rebalancing.RawHolding{
		{HeaderAsset: "B5P211", HeaderMarketValue: 6000.0, HeaderReturn: 0.08, HeaderResult: 450.0, HeaderQuantity: 50.0},
		{HeaderAsset: "IVVB11", HeaderMarketValue: 2000.0, HeaderReturn: 0.12, HeaderResult: 210.0, HeaderQuantity: 6.0},
		{HeaderAsset: "DIVO11", HeaderMarketValue: 2000.0, HeaderReturn: -0.02, HeaderResult: -40.0, HeaderQuantity: 20.0},
		{HeaderAsset: UnmatchedAssetID, HeaderMarketValue: 500.0, HeaderReturn: 0.01, HeaderResult: 5.0, HeaderQuantity: 13.0},
	}
}

// NewWorkbookFixture renders NewHoldingFixtures as an xlsx workbook.
// The first sheet holds the first two rows and a second sheet the rest.
func NewWorkbookFixture() ([]byte, error) {
	header := []interface{}{HeaderAsset, HeaderMarketValue, HeaderReturn, HeaderResult, HeaderQuantity}
	holdings := NewHoldingFixtures()

	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	if _, err := f.NewSheet("Fundos"); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	sheets := []struct {
		name string
		rows []rebalancing.RawHolding
	}{
		{first, holdings[:2]},
		{"Fundos", holdings[2:]},
	}

	for _, sheet := range sheets {
		if err := f.SetSheetRow(sheet.name, "A1", &header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		for i, h := range sheet.rows {
			row := []interface{}{h[HeaderAsset], h[HeaderMarketValue], h[HeaderReturn], h[HeaderResult], h[HeaderQuantity]}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// NewCSVFixture renders NewHoldingFixtures as a semicolon separated export
// using decimal commas.
func NewCSVFixture() []byte {
	return []byte("ATIVO;PATRIMÔNIO ATUAL;RENTABILIDADE;RESULTADO;QUANTIDADE\n" +
		"B5P211;6.000,00;8%;450,00;50\n" +
		"IVVB11;2.000,00;12%;210,00;6\n" +
		"DIVO11;2.000,00;-2%;(40,00);20\n" +
		"PETR4;500,00;1%;5,00;13\n")
}
