package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"gorm.io/gorm"
)

// Importable entity names, as used in routes and templates
const (
	EntityProducts  = "products"
	EntityCustomers = "customers"
	EntityLocations = "locations"
	EntityOrders    = "orders"
)

type productRecord struct {
	Name          string `col:"Name" validate:"required,max=100"`
	SKU           string `col:"SKU" validate:"required,max=50"`
	Price         string `col:"Price" validate:"required"`
	Description   string `col:"Description"`
	Cost          string `col:"Cost"`
	StockQuantity string `col:"Stock Quantity"`
	Category      string `col:"Category" validate:"max=50"`
	AgencyCode    string `col:"Agency Code"`
}

type customerRecord struct {
	Name         string `col:"Name" validate:"required,max=100"`
	Email        string `col:"Email" validate:"omitempty,email,max=120"`
	Phone        string `col:"Phone" validate:"max=20"`
	Address      string `col:"Address"`
	LocationID   string `col:"Location ID" validate:"omitempty,numeric"`
	LocationName string `col:"Location"`
	AgencyCode   string `col:"Agency Code"`
}

type locationRecord struct {
	Name       string `col:"Name" validate:"required,max=100"`
	Address    string `col:"Address"`
	City       string `col:"City" validate:"max=50"`
	State      string `col:"State" validate:"max=50"`
	ZipCode    string `col:"Zip Code" validate:"max=10"`
	Phone      string `col:"Phone" validate:"max=20"`
	AgencyCode string `col:"Agency Code"`
}

// ImportTemplateHeaders returns the header line offered as a blank template
func ImportTemplateHeaders(entity string) ([]string, bool) {
	switch entity {
	case EntityProducts:
		return []string{"Name", "Description", "SKU", "Price", "Cost", "Stock Quantity", "Category", "Agency Code"}, true
	case EntityCustomers:
		return []string{"Name", "Email", "Phone", "Address", "Location ID", "Location", "Agency Code"}, true
	case EntityLocations:
		return []string{"Name", "Address", "City", "State", "Zip Code", "Phone", "Agency Code"}, true
	}
	return nil, false
}

// productImportRules decodes product rows. SKU is unique across all agencies.
func productImportRules() ImportRules[productRecord, models.Product] {
	return ImportRules[productRecord, models.Product]{
		Decode: func(row utils.Row) (productRecord, error) {
			rec := productRecord{
				Name:          row.Get("Name", "Product Name"),
				SKU:           row.Get("SKU", "Product SKU"),
				Price:         row.Get("Price", "Unit Price"),
				Description:   row.Get("Description"),
				Cost:          row.Get("Cost"),
				StockQuantity: row.Get("Stock Quantity", "Stock", "Quantity"),
				Category:      row.Get("Category"),
				AgencyCode:    row.Get("Agency Code", "Agency"),
			}
			return rec, validateRecord(rec)
		},
		Resolve: func(db *gorm.DB, id Identity, rec productRecord, staged []models.Product) (models.Product, error) {
			var product models.Product
			price, err := parseMoney(rec.Price)
			if err != nil {
				return product, moneyFieldError("Price", rec.Price, err)
			}
			cost, err := parseMoney(rec.Cost)
			if err != nil {
				return product, moneyFieldError("Cost", rec.Cost, err)
			}
			stock, err := parseQuantity(rec.StockQuantity)
			if err != nil {
				return product, validationError("Stock Quantity", "Invalid stock quantity "+quoted(rec.StockQuantity))
			}
			agencyID, err := resolveImportAgency(db, id, rec.AgencyCode)
			if err != nil {
				return product, err
			}

			for _, p := range staged {
				if p.SKU == rec.SKU {
					return product, conflictError("DUPLICATE_ROW", fmt.Sprintf("Duplicate SKU %s in file", quoted(rec.SKU)))
				}
			}
			exists, err := rowExists(db, &models.Product{}, "sku = ?", rec.SKU)
			if err != nil {
				return product, err
			}
			if exists {
				return product, skuConflictFor(rec.SKU)
			}

			return models.Product{
				Name:          rec.Name,
				Description:   rec.Description,
				SKU:           rec.SKU,
				Price:         price,
				Cost:          cost,
				StockQuantity: stock,
				Category:      rec.Category,
				AgencyID:      agencyID,
				IsActive:      true,
			}, nil
		},
	}
}

// customerImportRules decodes customer rows. The location is given by id or
// by name within the agency; a customer name must be unique per location.
func customerImportRules() ImportRules[customerRecord, models.Customer] {
	return ImportRules[customerRecord, models.Customer]{
		Decode: func(row utils.Row) (customerRecord, error) {
			rec := customerRecord{
				Name:         row.Get("Name", "Customer Name", "Customer"),
				Email:        row.Get("Email"),
				Phone:        row.Get("Phone"),
				Address:      row.Get("Address"),
				LocationID:   row.Get("Location ID"),
				LocationName: row.Get("Location", "Location Name"),
				AgencyCode:   row.Get("Agency Code", "Agency"),
			}
			if err := validateRecord(rec); err != nil {
				return rec, err
			}
			if rec.LocationID == "" && rec.LocationName == "" {
				return rec, validationError("Location", "Location is required")
			}
			return rec, nil
		},
		Resolve: func(db *gorm.DB, id Identity, rec customerRecord, staged []models.Customer) (models.Customer, error) {
			var customer models.Customer
			location, err := resolveImportLocation(db, id, rec)
			if err != nil {
				return customer, err
			}

			for _, c := range staged {
				if c.Name == rec.Name && c.LocationID == location.ID {
					return customer, conflictError("DUPLICATE_ROW", fmt.Sprintf("Duplicate customer %s in file", quoted(rec.Name)))
				}
			}
			exists, err := rowExists(db, &models.Customer{}, "name = ? AND location_id = ?", rec.Name, location.ID)
			if err != nil {
				return customer, err
			}
			if exists {
				return customer, conflictError("CUSTOMER_EXISTS",
					fmt.Sprintf("Customer %s already exists at location %s", quoted(rec.Name), quoted(location.Name)))
			}

			return models.Customer{
				Name:       rec.Name,
				Email:      rec.Email,
				Phone:      rec.Phone,
				Address:    rec.Address,
				LocationID: location.ID,
				IsActive:   true,
			}, nil
		},
	}
}

// locationImportRules decodes location rows. A location name must be unique
// within its agency.
func locationImportRules() ImportRules[locationRecord, models.Location] {
	return ImportRules[locationRecord, models.Location]{
		Decode: func(row utils.Row) (locationRecord, error) {
			rec := locationRecord{
				Name:       row.Get("Name", "Location Name", "Location"),
				Address:    row.Get("Address"),
				City:       row.Get("City"),
				State:      row.Get("State"),
				ZipCode:    row.Get("Zip Code", "Zip", "Postal Code"),
				Phone:      row.Get("Phone"),
				AgencyCode: row.Get("Agency Code", "Agency"),
			}
			return rec, validateRecord(rec)
		},
		Resolve: func(db *gorm.DB, id Identity, rec locationRecord, staged []models.Location) (models.Location, error) {
			var location models.Location
			agencyID, err := resolveImportAgency(db, id, rec.AgencyCode)
			if err != nil {
				return location, err
			}

			for _, l := range staged {
				if l.Name == rec.Name && l.AgencyID == agencyID {
					return location, conflictError("DUPLICATE_ROW", fmt.Sprintf("Duplicate location %s in file", quoted(rec.Name)))
				}
			}
			exists, err := rowExists(db, &models.Location{}, "name = ? AND agency_id = ?", rec.Name, agencyID)
			if err != nil {
				return location, err
			}
			if exists {
				return location, conflictError("LOCATION_EXISTS", fmt.Sprintf("Location %s already exists", quoted(rec.Name)))
			}

			return models.Location{
				Name:     rec.Name,
				Address:  rec.Address,
				City:     rec.City,
				State:    rec.State,
				ZipCode:  rec.ZipCode,
				Phone:    rec.Phone,
				AgencyID: agencyID,
				IsActive: true,
			}, nil
		},
	}
}

// resolveImportAgency picks the target agency of a row: the one named by
// code, or the caller's own agency when the column is blank
func resolveImportAgency(db *gorm.DB, id Identity, code string) (uint, error) {
	if code == "" {
		if id.AgencyID == nil {
			return 0, validationError("Agency Code", "Agency Code is required")
		}
		var agency models.Agency
		if err := findByID(db, &agency, *id.AgencyID, "agency"); err != nil {
			return 0, err
		}
		if !agency.IsActive {
			return 0, validationError("Agency Code", fmt.Sprintf("Agency %s is inactive", quoted(agency.Code)))
		}
		return agency.ID, nil
	}

	agency, err := NewAgencyService(db).FindByCode(code)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return 0, &Error{Kind: KindNotFound, Code: "AGENCY_NOT_FOUND", Field: "Agency Code", Message: fmt.Sprintf("Agency %s not found", quoted(code))}
		}
		return 0, err
	}
	if err := id.authorizeAgency(agency.ID); err != nil {
		return 0, err
	}
	if !agency.IsActive {
		return 0, validationError("Agency Code", fmt.Sprintf("Agency %s is inactive", quoted(code)))
	}
	return agency.ID, nil
}

func resolveImportLocation(db *gorm.DB, id Identity, rec customerRecord) (*models.Location, error) {
	var location models.Location

	if rec.LocationID != "" {
		locationID, err := strconv.ParseUint(rec.LocationID, 10, 64)
		if err != nil {
			return nil, validationError("Location ID", "Invalid location id "+quoted(rec.LocationID))
		}
		if err := db.First(&location, uint(locationID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &Error{Kind: KindNotFound, Code: "LOCATION_NOT_FOUND", Field: "Location ID", Message: fmt.Sprintf("Location %s not found", quoted(rec.LocationID))}
			}
			return nil, err
		}
	} else {
		query := db.Where("name = ?", rec.LocationName)
		if rec.AgencyCode != "" || id.AgencyID != nil {
			agencyID, err := resolveImportAgency(db, id, rec.AgencyCode)
			if err != nil {
				return nil, err
			}
			query = query.Where("agency_id = ?", agencyID)
		}
		var matches []models.Location
		if err := query.Limit(2).Find(&matches).Error; err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return nil, &Error{Kind: KindNotFound, Code: "LOCATION_NOT_FOUND", Field: "Location", Message: fmt.Sprintf("Location %s not found", quoted(rec.LocationName))}
		case 1:
			location = matches[0]
		default:
			return nil, validationError("Location", fmt.Sprintf("Location %s is ambiguous; add an Agency Code or Location ID", quoted(rec.LocationName)))
		}
	}

	if err := id.authorizeAgency(location.AgencyID); err != nil {
		return nil, err
	}
	if !location.IsActive {
		return nil, validationError("Location", fmt.Sprintf("Location %s is inactive", quoted(location.Name)))
	}
	return &location, nil
}

func rowExists(db *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// moneyFieldError reports an unusable money cell of an import row
func moneyFieldError(column, raw string, err error) *Error {
	if errors.Is(err, errAmountTooLarge) {
		return validationError(column, fmt.Sprintf("%s %s exceeds %s", column, quoted(raw), models.MaxAmount.StringFixed(2)))
	}
	return validationError(column, fmt.Sprintf("Invalid %s %s", strings.ToLower(column), quoted(raw)))
}

func skuConflictFor(sku string) *Error {
	return &Error{Kind: KindConflict, Code: "SKU_EXISTS", Field: "SKU", Message: fmt.Sprintf("SKU %s already exists", quoted(sku))}
}
