package enums

// StockAdjustmentType describes why a cart line changed during stock validation.
type StockAdjustmentType string

const (
	StockAdjustmentPartial StockAdjustmentType = "partial_stock_adjustment"
	StockAdjustmentRemoved StockAdjustmentType = "item_removed"
)

var validStockAdjustmentTypes = []StockAdjustmentType{
	StockAdjustmentPartial,
	StockAdjustmentRemoved,
}

// String implements fmt.Stringer.
func (t StockAdjustmentType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known StockAdjustmentType.
func (t StockAdjustmentType) IsValid() bool {
	for _, candidate := range validStockAdjustmentTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
