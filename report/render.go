package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fluxia-erp/fluxia/internal/production"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

func money(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}

func qty(v float64) string {
	return printer.Sprintf("%v", v)
}

var funcs = template.FuncMap{
	"money": money,
	"qty":   qty,
	"date": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
}

var orderTemplate = template.Must(template.New("order").Funcs(funcs).Parse(`<html>
<head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
h1 { font-size: 18px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 16px; }
th, td { border: 1px solid #888; padding: 4px 6px; text-align: left; }
.meta td { border: none; padding: 2px 6px; }
</style></head>
<body>
<h1>{{.Title}}</h1>
<table class="meta">
<tr><td>Product</td><td>{{.ProductName}}</td><td>Status</td><td>{{.Order.Status}}</td></tr>
<tr><td>Planned</td><td>{{qty .Order.PlannedQuantity}}</td><td>Produced</td><td>{{qty .Order.ProducedQuantity}}</td></tr>
<tr><td>Planned start</td><td>{{date .Order.PlannedStartDate}}</td><td>Planned end</td><td>{{date .Order.PlannedEndDate}}</td></tr>
</table>
<h2>Materials</h2>
<table>
<tr><th>Material</th><th>Planned</th><th>Consumed</th><th>Unit cost</th></tr>
{{range .Order.MaterialConsumption}}
<tr><td>{{.ProductName}}</td><td>{{qty .PlannedQuantity}}</td><td>{{qty .ConsumedQuantity}}</td><td>{{money .UnitCost}}</td></tr>
{{end}}
</table>
<h2>Costs</h2>
<table>
<tr><th>Planned unit cost</th><th>Material cost</th><th>Actual unit cost</th><th>Variance</th></tr>
<tr><td>{{money .Order.Costs.PlannedUnitCost}}</td><td>{{money .Order.Costs.MaterialCost}}</td>
<td>{{money .Order.Costs.ActualUnitCost}}</td><td>{{money .Order.Costs.CostDifference}} ({{printf "%.1f" .Order.Costs.CostDifferencePct}}%)</td></tr>
</table>
{{if .Order.Entries}}
<h2>Production log</h2>
<table>
<tr><th>Date</th><th>Quantity</th><th>Notes</th></tr>
{{range .Order.Entries}}
<tr><td>{{date .Date}}</td><td>{{qty .Quantity}}</td><td>{{.Notes}}</td></tr>
{{end}}
</table>
{{end}}
</body></html>`))

type orderData struct {
	Title       string
	ProductName string
	Order       production.Order
}

// RenderOrderHTML builds the production order sheet.
func RenderOrderHTML(order production.Order, productName string) (string, error) {
	data := orderData{
		Title:       fmt.Sprintf("Production order PO-%d/%d", order.Number, order.Year),
		ProductName: productName,
		Order:       order,
	}
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var movementTemplate = template.Must(template.New("movement").Funcs(funcs).Parse(`<html>
<head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
h1 { font-size: 18px; }
table { width: 100%; border-collapse: collapse; }
td { border: 1px solid #888; padding: 4px 6px; }
</style></head>
<body>
<h1>{{.Title}}</h1>
<table>
<tr><td>Product</td><td>{{.ProductName}}</td></tr>
<tr><td>Type</td><td>{{.Movement.Type}} ({{.Movement.Direction}})</td></tr>
<tr><td>Date</td><td>{{date .Movement.Date}}</td></tr>
<tr><td>Quantity</td><td>{{qty .Movement.Quantity}}</td></tr>
<tr><td>Unit cost</td><td>{{money .Movement.UnitCost}}</td></tr>
<tr><td>Total cost</td><td>{{money .Movement.TotalCost}}</td></tr>
<tr><td>Stock before</td><td>{{qty .Movement.StockBefore}}</td></tr>
<tr><td>Stock after</td><td>{{qty .Movement.StockAfter}}</td></tr>
{{if .Movement.Reference}}<tr><td>Reference</td><td>{{.Movement.Reference}}</td></tr>{{end}}
{{if .Movement.Notes}}<tr><td>Notes</td><td>{{.Movement.Notes}}</td></tr>{{end}}
</table>
</body></html>`))

type movementData struct {
	Title       string
	ProductName string
	Movement    stockledger.Movement
}

// RenderMovementHTML builds the stock movement document.
func RenderMovementHTML(movement stockledger.Movement, productName string) (string, error) {
	data := movementData{
		Title:       fmt.Sprintf("Stock movement SM-%d/%d", movement.Number, movement.Year),
		ProductName: productName,
		Movement:    movement,
	}
	var buf bytes.Buffer
	if err := movementTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
