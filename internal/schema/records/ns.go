package records

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/typedcsv/internal/schema"
)

func init() {
	schema.Register(schema.Define[NsCustomer](schema.Info{
		Key:   "ns_customers",
		Group: "NS",
		Label: "Customers",
		Table: "ns_customers",
	}))
	schema.Register(schema.Define[NsInvoiceDetail](schema.Info{
		Key:   "ns_invoice_detail",
		Group: "NS",
		Label: "Invoice Detail",
		Table: "ns_invoice_detail",
	}, UsStateConverter))
}

// NsCustomer is a row of the NetSuite customer export.
type NsCustomer struct {
	SalesforceID   pgtype.Text    `csv:"salesforce_id_io"`
	InternalID     string         `csv:"internal_id"`
	Name           string         `csv:"name"`
	CompanyName    pgtype.Text    `csv:"company_name"`
	Balance        pgtype.Numeric `csv:"balance"`
	UnbilledOrders pgtype.Numeric `csv:"unbilled_orders"`
	OverdueBalance pgtype.Numeric `csv:"overdue_balance"`
	DaysOverdue    pgtype.Int8    `csv:"days_overdue"`
}

// NsInvoiceDetail is a line of the NetSuite invoice detail export.
type NsInvoiceDetail struct {
	SfdcOppID          pgtype.Text    `csv:"sfdc_opp_id"`
	SfdcOppLineID      pgtype.Text    `csv:"sfdc_opp_line_id"`
	CustomerInternalID string         `csv:"customer_internal_id"`
	ProductInternalID  pgtype.Text    `csv:"product_internal_id"`
	Type               string         `csv:"type"`
	Date               pgtype.Date    `csv:"date"`
	DateDue            pgtype.Date    `csv:"date_due"`
	DocumentNumber     string         `csv:"document_number"`
	Memo               *string        `csv:"memo"`
	Item               pgtype.Text    `csv:"item"`
	Qty                pgtype.Numeric `csv:"qty"`
	UnitPrice          pgtype.Numeric `csv:"unit_price"`
	Amount             pgtype.Numeric `csv:"amount"`
	ShippingCity       *string        `csv:"shipping_address_city" db:"shipping_address_city"`
	ShippingState      *UsState       `csv:"shipping_address_state" db:"shipping_address_state"`
	ShippingCountry    *string        `csv:"shipping_address_country" db:"shipping_address_country"`
}
