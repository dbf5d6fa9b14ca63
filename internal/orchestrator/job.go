package orchestrator

import (
	"github.com/xkilldash9x/taxgo/internal/browser/field"
	"github.com/xkilldash9x/taxgo/internal/hometax"
	"github.com/xkilldash9x/taxgo/internal/sheet"
)

// Values used when the sheet leaves an item cell empty.
const (
	DefaultItemName = "연습"
	DefaultItemDay  = "15"
	DefaultItemQty  = "1"
	DefaultPrice    = "10000"
)

// Job is one invoice to issue.
type Job struct {
	// Row is the sheet row to mark once issued. Zero means no sheet row.
	Row       int
	BizNo     string
	Email     string
	WriteDate string
	// BranchName selects the sub-branch row in the registration popup.
	BranchName string
	// Company and Representative come from the buyer directory and override
	// what the registration lookup fills in. Empty keeps the page's values.
	Company        string
	Representative string
	Item           hometax.Item
	ReceiptKind    string
}

// JobFromInvoice maps a sheet row onto a Job, filling item defaults.
// bizNoOverride, when set, replaces the row's business number.
func JobFromInvoice(inv *sheet.Invoice, bizNoOverride string) Job {
	job := Job{
		Row:         inv.Row,
		BizNo:       inv.BizNo,
		Email:       inv.Email,
		WriteDate:   inv.WriteDate,
		BranchName:  inv.Company,
		ReceiptKind: orDefault(inv.ClaimOrReceipt, hometax.ReceiptClaim),
		Item: hometax.Item{
			Day:  orDefault(inv.Day, DefaultItemDay),
			Name: orDefault(inv.Item, DefaultItemName),
			Qty:  orDefault(inv.Qty, DefaultItemQty),
		},
	}
	price := orDefault(inv.Price, DefaultPrice)
	job.Item.Price = orDefault(field.DigitsOnly(price), price)

	if d := field.DigitsOnly(bizNoOverride); d != "" {
		job.BizNo = d
	}
	if inv.Buyer != nil {
		job.Company = inv.Buyer.Company
		job.Representative = inv.Buyer.Representative
		if job.BranchName == "" {
			job.BranchName = inv.Buyer.Company
		}
	}
	return job
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
