package records

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/typedcsv/internal/schema"
)

func init() {
	schema.Register(schema.Define[AnrokTransaction](schema.Info{
		Key:   "anrok_transactions",
		Group: "Anrok",
		Label: "Transactions",
		Table: "anrok_transactions",
	}, UsStateConverter))
}

// AnrokTransaction is a row of the Anrok tax transaction report. Headers are
// matched without regard to case since the export capitalizes inconsistently.
type AnrokTransaction struct {
	TransactionID   string         `csv:"Transaction ID,ignorecase"`
	CustomerID      string         `csv:"Customer ID,ignorecase"`
	CustomerName    pgtype.Text    `csv:"Customer name,ignorecase"`
	VATStatus       pgtype.Text    `csv:"Overall VAT ID validation status,ignorecase" db:"vat_validation_status"`
	ValidVATIDs     []string       `csv:"Valid VAT IDs,ignorecase"`
	OtherVATIDs     []string       `csv:"Other VAT IDs,ignorecase"`
	InvoiceDate     pgtype.Date    `csv:"Invoice date,ignorecase"`
	TaxDate         pgtype.Date    `csv:"Tax date,ignorecase"`
	Currency        pgtype.Text    `csv:"Transaction currency,ignorecase"`
	SalesAmount     pgtype.Numeric `csv:"Sales amount,ignorecase"`
	TaxAmount       pgtype.Numeric `csv:"Tax amount,ignorecase"`
	InvoiceAmount   pgtype.Numeric `csv:"Invoice amount,ignorecase"`
	Void            pgtype.Bool    `csv:"Void,ignorecase"`
	Region          *UsState       `csv:"Customer address region,ignorecase"`
	CountryCode     pgtype.Text    `csv:"Customer country code,ignorecase"`
	JurisdictionIDs []string       `csv:"Jurisdictions IDs,ignorecase" db:"jurisdiction_ids"`
}
