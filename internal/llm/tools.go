package llm

import openrouter "github.com/revrost/go-openrouter"

const (
	ToolDashboardStats = "GetDashboardStats"
	ToolSearchProducts = "SearchProducts"
	ToolLowStock       = "GetLowStock"
	ToolProfitLoss     = "GetProfitLoss"
	ToolCashFlow       = "GetCashFlow"
)

func ToolSchemas() []openrouter.Tool {
	return []openrouter.Tool{
		dashboardStatsTool(),
		searchProductsTool(),
		lowStockTool(),
		periodTool(ToolProfitLoss, "Profit and loss for a date range: gross_sales, cogs, gross_profit, operational_expenses, net_profit and expense_details. Use for questions about profit (laba), margins or expenses."),
		periodTool(ToolCashFlow, "Cash flow for a date range: total_cash_in, total_cash_out, net_cash_flow and details (cash_sales, piutang_payments, hutang_payments, expenses). Use for questions about cash (kas) movements."),
	}
}

func function(name, description string, properties map[string]any, required ...string) openrouter.Tool {
	if required == nil {
		required = []string{}
	}
	return openrouter.Tool{
		Type: openrouter.ToolTypeFunction,
		Function: &openrouter.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":                 "object",
				"properties":           properties,
				"required":             required,
				"additionalProperties": false,
			},
		},
	}
}

func dashboardStatsTool() openrouter.Tool {
	return function(ToolDashboardStats,
		"Store KPIs for today, the last week or the current month: revenue, total_transactions, items_sold and low_stock_items, each with value and trend versus the previous period, plus recent_activities. Fastest way to answer 'how were sales today'.",
		map[string]any{
			"range": map[string]any{
				"type":        "string",
				"enum":        []string{"today", "week", "month"},
				"description": "Window for the KPIs. Default today.",
			},
		},
	)
}

func searchProductsTool() openrouter.Tool {
	return function(ToolSearchProducts,
		"Find sellable product variants by name or SKU. Returns id, name, stock, unit, normal price, reseller price and quantity price rules. Default limit 10.",
		map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Text to search in product name, variant name or SKU.",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of products to return (default 10, max 50).",
			},
		},
		"query",
	)
}

func lowStockTool() openrouter.Tool {
	return function(ToolLowStock,
		"Products whose stock is at or below their low stock warning level. Returns id, name, stock, unit and threshold. Default limit 20.",
		map[string]any{
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of products to return (default 20, max 100).",
			},
		},
	)
}

func periodTool(name, description string) openrouter.Tool {
	return function(name, description,
		map[string]any{
			"start_date": map[string]any{
				"type":        "string",
				"format":      "date",
				"description": "First day, YYYY-MM-DD. If the user gives no period use the first day of the current month.",
			},
			"end_date": map[string]any{
				"type":        "string",
				"format":      "date",
				"description": "Last day, YYYY-MM-DD. If the user gives no period use today.",
			},
		},
		"start_date", "end_date",
	)
}
