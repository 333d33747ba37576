package services

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Content types of the export formats
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	exportTimeLayout = "2006-01-02 15:04:05"
	exportDateLayout = "2006-01-02"
)

// ExportFile is a rendered export ready to be downloaded or archived
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders scoped entity lists as CSV or XLSX
type ExportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExportService creates an ExportService backed by db
func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db, now: time.Now}
}

// Export renders entity in format for the rows visible to id
func (s *ExportService) Export(id Identity, entity, format string, filter ListFilter) (*ExportFile, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, validationError("format", "Format must be csv or xlsx")
	}

	var sheets []utils.Sheet
	switch entity {
	case EntityProducts:
		products, err := NewProductService(s.db).List(id, filter)
		if err != nil {
			return nil, err
		}
		sheets = []utils.Sheet{ProductSheet(products)}
	case EntityCustomers:
		customers, err := NewCustomerService(s.db).List(id, filter)
		if err != nil {
			return nil, err
		}
		sheets = []utils.Sheet{CustomerSheet(customers)}
	case EntityLocations:
		locations, err := NewLocationService(s.db).List(id, filter)
		if err != nil {
			return nil, err
		}
		sheets = []utils.Sheet{LocationSheet(locations)}
	case EntityOrders:
		orders, err := NewOrderService(s.db).List(id, filter)
		if err != nil {
			return nil, err
		}
		sheets = []utils.Sheet{OrderSummarySheet(orders)}
		if format == FormatXLSX {
			sheets = append(sheets, OrderDetailSheet(orders))
		}
	default:
		return nil, validationError("entity", fmt.Sprintf("Export is not supported for %s", entity))
	}

	var buf bytes.Buffer
	file := &ExportFile{
		Filename: fmt.Sprintf("%s_export_%s.%s", entity, s.now().Format("20060102_150405"), format),
		Rows:     len(sheets[0].Rows),
	}
	if format == FormatCSV {
		file.ContentType = ContentTypeCSV
		if err := utils.WriteCSV(&buf, sheets[0]); err != nil {
			return nil, err
		}
	} else {
		file.ContentType = ContentTypeXLSX
		if err := utils.WriteXLSX(&buf, sheets...); err != nil {
			return nil, err
		}
	}
	file.Data = buf.Bytes()
	return file, nil
}

// ImportTemplate renders a header-only CSV for entity
func ImportTemplate(entity string) (*ExportFile, error) {
	headers, ok := ImportTemplateHeaders(entity)
	if !ok {
		return nil, validationError("entity", fmt.Sprintf("Import is not supported for %s", entity))
	}
	var buf bytes.Buffer
	if err := utils.WriteCSV(&buf, utils.Sheet{Headers: headers}); err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    entity + "_import_template.csv",
		ContentType: ContentTypeCSV,
		Data:        buf.Bytes(),
	}, nil
}

// ProductSheet lays out products in export column order
func ProductSheet(products []models.Product) utils.Sheet {
	sheet := utils.Sheet{
		Name:    "Products",
		Headers: []string{"ID", "Name", "Description", "SKU", "Price", "Cost", "Stock Quantity", "Category", "Agency", "Agency Code", "Active", "Created At"},
	}
	for _, p := range products {
		sheet.Rows = append(sheet.Rows, []string{
			formatID(p.ID),
			p.Name,
			p.Description,
			p.SKU,
			formatMoney(p.Price),
			formatMoney(p.Cost),
			strconv.Itoa(p.StockQuantity),
			p.Category,
			agencyName(p.Agency),
			agencyCode(p.Agency),
			yesNo(p.IsActive),
			p.CreatedAt.Format(exportTimeLayout),
		})
	}
	return sheet
}

// CustomerSheet lays out customers in export column order
func CustomerSheet(customers []models.Customer) utils.Sheet {
	sheet := utils.Sheet{
		Name:    "Customers",
		Headers: []string{"ID", "Name", "Email", "Phone", "Address", "Location", "Agency", "Agency Code", "Active", "Created At"},
	}
	for _, c := range customers {
		var location, agency, code string
		if c.Location != nil {
			location = c.Location.Name
			agency = agencyName(c.Location.Agency)
			code = agencyCode(c.Location.Agency)
		}
		sheet.Rows = append(sheet.Rows, []string{
			formatID(c.ID),
			c.Name,
			c.Email,
			c.Phone,
			c.Address,
			location,
			agency,
			code,
			yesNo(c.IsActive),
			c.CreatedAt.Format(exportTimeLayout),
		})
	}
	return sheet
}

// LocationSheet lays out locations in export column order
func LocationSheet(locations []models.Location) utils.Sheet {
	sheet := utils.Sheet{
		Name:    "Locations",
		Headers: []string{"ID", "Name", "Address", "City", "State", "Zip Code", "Phone", "Agency", "Agency Code", "Active", "Created At"},
	}
	for _, l := range locations {
		sheet.Rows = append(sheet.Rows, []string{
			formatID(l.ID),
			l.Name,
			l.Address,
			l.City,
			l.State,
			l.ZipCode,
			l.Phone,
			agencyName(l.Agency),
			agencyCode(l.Agency),
			yesNo(l.IsActive),
			l.CreatedAt.Format(exportTimeLayout),
		})
	}
	return sheet
}

// OrderSummarySheet lays out one row per order
func OrderSummarySheet(orders []models.Order) utils.Sheet {
	sheet := utils.Sheet{
		Name: "Order Summary",
		Headers: []string{
			"Order Number", "Customer", "Agency", "Salesperson", "Status",
			"Total Amount", "Discount", "Tax", "Order Date", "Delivery Date", "Items Count",
		},
	}
	for _, o := range orders {
		sheet.Rows = append(sheet.Rows, []string{
			o.OrderNumber,
			customerName(o.Customer),
			agencyName(o.Agency),
			salespersonName(o.Salesperson),
			string(o.Status),
			formatMoney(o.TotalAmount),
			formatMoney(o.Discount),
			formatMoney(o.Tax),
			o.OrderDate.Format(exportTimeLayout),
			formatDate(o.DeliveryDate),
			strconv.Itoa(len(o.Items)),
		})
	}
	return sheet
}

// OrderDetailSheet lays out one row per order line
func OrderDetailSheet(orders []models.Order) utils.Sheet {
	sheet := utils.Sheet{
		Name: "Order Details",
		Headers: []string{
			"Order ID", "Order Number", "Customer", "Customer Email", "Customer Phone",
			"Location", "Agency", "Salesperson", "Product Name", "Product SKU",
			"Quantity", "Unit Price", "Total Price", "Order Status", "Order Total",
			"Discount", "Tax", "Order Date", "Delivery Date", "Notes",
		},
	}
	for _, o := range orders {
		var email, phone, location string
		if o.Customer != nil {
			email, phone = o.Customer.Email, o.Customer.Phone
			if o.Customer.Location != nil {
				location = o.Customer.Location.Name
			}
		}
		for _, item := range o.Items {
			var productName, sku string
			if item.Product != nil {
				productName, sku = item.Product.Name, item.Product.SKU
			}
			sheet.Rows = append(sheet.Rows, []string{
				formatID(o.ID),
				o.OrderNumber,
				customerName(o.Customer),
				email,
				phone,
				location,
				agencyName(o.Agency),
				salespersonName(o.Salesperson),
				productName,
				sku,
				strconv.Itoa(item.Quantity),
				formatMoney(item.UnitPrice),
				formatMoney(item.TotalPrice),
				string(o.Status),
				formatMoney(o.TotalAmount),
				formatMoney(o.Discount),
				formatMoney(o.Tax),
				o.OrderDate.Format(exportTimeLayout),
				formatDate(o.DeliveryDate),
				o.Notes,
			})
		}
	}
	return sheet
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportDateLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func agencyName(a *models.Agency) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func agencyCode(a *models.Agency) string {
	if a == nil {
		return ""
	}
	return a.Code
}

func customerName(c *models.Customer) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func salespersonName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.FullName()
}
