package rebalancing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Normalize left-joins the holdings snapshot onto the target configuration.
//
// The result has exactly one row per target, in target order. Targets without a
// matching holding get a zero market value. Holdings whose asset_id is not a
// target are dropped from the rows and listed in Unmatched. Several holdings rows
// for the same asset_id are merged (see mergeHolding).
//
// Weights are taken as given: a configuration that does not sum to 1 is not
// rescaled here and yields proportionally skewed gaps. Use
// allocation.NormalizeWeights beforehand when the weights are raw.
//
// Unparseable market values count as 0 and unparseable optional values as absent;
// that leniency is intentional. A market value that is negative after merging,
// such as "(12)" or "-50", is clamped to 0 and its asset_id listed in
// NegativeValues so callers can warn.
func Normalize(raw []RawHolding, targets []AssetTarget) (*AllocationTable, error) {
	if err := ValidateTargets(targets); err != nil {
		return nil, err
	}

	records, columns, err := CanonicalHoldings(raw)
	if err != nil {
		return nil, err
	}

	targetIndex := make(map[string]int, len(targets))
	for i, target := range targets {
		targetIndex[target.AssetID] = i
	}

	byAsset := make(map[string]HoldingRecord, len(records))
	var unmatched []string
	for _, rec := range records {
		if _, ok := targetIndex[rec.AssetID]; !ok {
			if _, seen := byAsset[rec.AssetID]; !seen {
				unmatched = append(unmatched, rec.AssetID)
			}
		}
		if existing, ok := byAsset[rec.AssetID]; ok {
			byAsset[rec.AssetID] = mergeHolding(existing, rec)
		} else {
			byAsset[rec.AssetID] = rec
		}
	}

	table := &AllocationTable{
		Rows:      make([]AllocationRow, len(targets)),
		Columns:   columns,
		Unmatched: unmatched,
	}
	for i, target := range targets {
		row := AllocationRow{
			Category:     target.Category,
			AssetID:      target.AssetID,
			TargetWeight: target.TargetWeight,
		}
		if rec, ok := byAsset[target.AssetID]; ok {
			row.MarketValue = rec.MarketValue
			if row.MarketValue < 0 {
				row.MarketValue = 0
				table.NegativeValues = append(table.NegativeValues, target.AssetID)
			}
			row.ReturnPct = cloneFloat(rec.ReturnPct)
			row.ProfitLoss = cloneFloat(rec.ProfitLoss)
			row.AvgPrice = cloneFloat(rec.AvgPrice)
			row.LastPrice = cloneFloat(rec.LastPrice)
			row.Quantity = cloneFloat(rec.Quantity)
		}
		table.Rows[i] = row
	}

	return table, nil
}

// ValidateTargets checks a target configuration can be computed with.
// It does not require the weights to sum to 1, only to a positive number.
func ValidateTargets(targets []AssetTarget) error {
	if len(targets) == 0 {
		return configErrorf("target weights must not be empty")
	}

	seen := make(map[string]bool, len(targets))
	weights := make([]float64, 0, len(targets))
	for i, target := range targets {
		if target.AssetID == "" {
			return configErrorf("target %d has an empty asset_id", i+1)
		}
		if seen[target.AssetID] {
			return configErrorf("duplicate target asset_id %q", target.AssetID)
		}
		seen[target.AssetID] = true

		if !isFinite(target.TargetWeight) || target.TargetWeight < 0 {
			return configErrorf("target weight for %q must be a non-negative number, got %v", target.AssetID, target.TargetWeight)
		}
		weights = append(weights, target.TargetWeight)
	}

	if sum := floats.Sum(weights); sum <= 0 {
		return configErrorf("target weights must sum to a positive number, got %v", sum)
	}
	return nil
}

// CanonicalHoldings maps raw rows onto canonical fields through the column alias
// table. Rows with an empty asset_id are skipped. It fails only when rows exist
// but none of them carries an asset identifier or a market value column.
func CanonicalHoldings(raw []RawHolding) ([]HoldingRecord, Columns, error) {
	var columns Columns
	if len(raw) == 0 {
		return nil, columns, nil
	}

	hasAssetID := false
	hasMarketValue := false
	records := make([]HoldingRecord, 0, len(raw))

	for i, row := range raw {
		if row == nil {
			return nil, columns, &DataShapeError{Row: i + 1, Reason: "row is empty"}
		}

		// Headers are visited in sorted order and the first usable value wins,
		// so rows carrying two aliases of one column map deterministically.
		headers := make([]string, 0, len(row))
		for header := range row {
			headers = append(headers, header)
		}
		sort.Strings(headers)

		var rec HoldingRecord
		valueSet := false
		for _, header := range headers {
			col, ok := LookupColumn(header)
			if !ok {
				continue
			}
			value := row[header]
			switch col {
			case ColumnAssetID:
				hasAssetID = true
				if rec.AssetID == "" {
					rec.AssetID = assetIDString(value)
				}
			case ColumnMarketValue:
				hasMarketValue = true
				if v, ok := ParseNumber(value); ok && !valueSet {
					rec.MarketValue = v
					valueSet = true
				}
			case ColumnReturnPct:
				columns.ReturnPct = true
				rec.ReturnPct = firstOptional(rec.ReturnPct, value)
			case ColumnProfitLoss:
				columns.ProfitLoss = true
				rec.ProfitLoss = firstOptional(rec.ProfitLoss, value)
			case ColumnAvgPrice:
				columns.AvgPrice = true
				rec.AvgPrice = firstOptional(rec.AvgPrice, value)
			case ColumnLastPrice:
				columns.LastPrice = true
				rec.LastPrice = firstOptional(rec.LastPrice, value)
			case ColumnQuantity:
				columns.Quantity = true
				rec.Quantity = firstOptional(rec.Quantity, value)
			}
		}

		if rec.AssetID == "" {
			continue
		}
		records = append(records, rec)
	}

	if !hasAssetID {
		return nil, columns, &DataShapeError{Reason: fmt.Sprintf("no asset identifier column among %d rows", len(raw))}
	}
	if !hasMarketValue {
		return nil, columns, &DataShapeError{Reason: fmt.Sprintf("no market value column among %d rows", len(raw))}
	}

	return records, columns, nil
}

// mergeHolding combines two rows of the same asset. Values and quantities add up,
// the return is weighted by market value, prices keep the first value seen.
func mergeHolding(a, b HoldingRecord) HoldingRecord {
	merged := a
	merged.MarketValue = a.MarketValue + b.MarketValue
	merged.ProfitLoss = addOptional(a.ProfitLoss, b.ProfitLoss)
	merged.Quantity = addOptional(a.Quantity, b.Quantity)

	switch {
	case a.ReturnPct == nil:
		merged.ReturnPct = cloneFloat(b.ReturnPct)
	case b.ReturnPct == nil:
		merged.ReturnPct = cloneFloat(a.ReturnPct)
	default:
		total := a.MarketValue + b.MarketValue
		var r float64
		if math.Abs(total) > 0 {
			r = (*a.ReturnPct*a.MarketValue + *b.ReturnPct*b.MarketValue) / total
		} else {
			r = (*a.ReturnPct + *b.ReturnPct) / 2
		}
		merged.ReturnPct = &r
	}

	if merged.AvgPrice == nil {
		merged.AvgPrice = cloneFloat(b.AvgPrice)
	}
	if merged.LastPrice == nil {
		merged.LastPrice = cloneFloat(b.LastPrice)
	}
	return merged
}

func addOptional(a, b *float64) *float64 {
	switch {
	case a == nil:
		return cloneFloat(b)
	case b == nil:
		return cloneFloat(a)
	}
	return floatPtr(*a + *b)
}

func firstOptional(current *float64, v interface{}) *float64 {
	if current != nil {
		return current
	}
	if f, ok := ParseNumber(v); ok {
		return &f
	}
	return nil
}
