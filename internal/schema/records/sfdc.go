// Package records declares the record types the application reads and
// registers them with the schema registry. Import it for its side effects.
package records

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/typedcsv/internal/schema"
)

func init() {
	schema.Register(schema.Define[SfdcCustomer](schema.Info{
		Key:   "sfdc_customers",
		Group: "SFDC",
		Label: "Customers",
		Table: "sfdc_customers",
	}))
	schema.Register(schema.Define[SfdcPriceBook](schema.Info{
		Key:   "sfdc_price_book",
		Group: "SFDC",
		Label: "Price Book",
		Table: "sfdc_price_book",
	}))
}

// SfdcCustomer is a row of the Salesforce account export.
type SfdcCustomer struct {
	AccountID    pgtype.Text `csv:"account_id_casesafe,ignorecase" db:"account_id_casesafe"`
	AccountName  string      `csv:"account_name,ignorecase"`
	LastActivity pgtype.Date `csv:"last_activity,ignorecase"`
	Type         *string     `csv:"type,ignorecase"`
}

// SfdcPriceBook is a row of the Salesforce price book export.
type SfdcPriceBook struct {
	PriceBookName string         `csv:"price_book_name,ignorecase"`
	ListPrice     pgtype.Numeric `csv:"list_price,ignorecase"`
	ProductName   string         `csv:"product_name,ignorecase"`
	ProductCode   pgtype.Text    `csv:"product_code,ignorecase"`
	ProductID     pgtype.Text    `csv:"product_id_casesafe,ignorecase"`
	Active        pgtype.Bool    `csv:"active_product,ignorecase"`
}
