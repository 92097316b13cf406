package domain

// LowStockItem is a product at or below the low-stock threshold.
type LowStockItem struct {
	ID     int64         `json:"id"`
	SKU    string        `json:"sku"`
	Name   string        `json:"name"`
	Qty    int           `json:"qty"`
	Status ProductStatus `json:"status"`
}

// ForecastItem estimates how long a product's stock will last based on its
// average daily consumption over the last 30 days. DaysToZero is nil when
// there was no consumption.
type ForecastItem struct {
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	AvgDailyUsage float64  `json:"avg_daily_usage"`
	DaysToZero    *float64 `json:"days_to_zero"`
	CurrentQty    int      `json:"current_qty"`
}

// DashboardSummary aggregates catalog totals, recent movement activity,
// low-stock products and the consumption forecast.
type DashboardSummary struct {
	TotalProducts   int            `json:"total_products"`
	TotalStock      int            `json:"total_stock"`
	TotalValue      int64          `json:"total_value"`
	MovementsLast7d int            `json:"movements_last_7d"`
	LowStock        []LowStockItem `json:"low_stock"`
	Forecast        []ForecastItem `json:"forecast"`
}
