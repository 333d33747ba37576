package services

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestImportProductsReportsRowErrors(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)

	data := csvFile(
		"Name,SKU,Price,Category",
		"Hammer,H-1,12.50,Tools",
		"Hammer Copy,H-1,13.00,Tools",
		"Nails,N-1,,Tools",
	)

	result, err := svc.Import(IdentityFor(w.staffA), EntityProducts, "products.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Row 2: Duplicate SKU 'H-1' in file", result.Errors[0])
	assert.Equal(t, "Row 3: Price is required", result.Errors[1])

	var hammer models.Product
	require.NoError(t, w.db.Where("sku = ?", "H-1").First(&hammer).Error)
	assert.Equal(t, w.agencyA.ID, hammer.AgencyID)
	assert.Equal(t, "12.50", hammer.Price.StringFixed(2))
	assert.True(t, hammer.IsActive)
}

func TestImportProductsRejectsOversizedAmounts(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)

	data := csvFile(
		"Name,SKU,Price,Cost,Category",
		"Yacht,Y-1,100000000,,Boats",
		"Dinghy,Y-2,150.00,999999999,Boats",
		"Canoe,Y-3,99999999.99,10,Boats",
	)

	result, err := svc.Import(IdentityFor(w.staffA), EntityProducts, "products.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Row 1: Price '100000000' exceeds 99999999.99", result.Errors[0])
	assert.Equal(t, "Row 2: Cost '999999999' exceeds 99999999.99", result.Errors[1])

	var canoe models.Product
	require.NoError(t, w.db.Where("sku = ?", "Y-3").First(&canoe).Error)
	assert.Equal(t, "99999999.99", canoe.Price.StringFixed(2))
}

func TestImportIsIdempotent(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)
	data := csvFile(
		"Name,SKU,Price",
		"Hammer,H-1,12.50",
		"Saw,S-1,20",
	)

	first, err := svc.Import(IdentityFor(w.adminA), EntityProducts, "products.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := svc.Import(IdentityFor(w.adminA), EntityProducts, "products.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, "Row 1: SKU 'H-1' already exists", second.Errors[0])

	assert.Equal(t, int64(6), count(t, w.db, &models.Product{}))
}

func TestImportCapsErrorMessages(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, 3)

	lines := []string{"Name,SKU,Price"}
	for i := 0; i < 5; i++ {
		lines = append(lines, fmt.Sprintf("Thing %d,T-%d,", i, i))
	}

	result, err := svc.Import(IdentityFor(w.staffA), EntityProducts, "things.csv", csvFile(lines...))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 5, result.Skipped)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, "... and 2 more errors", result.Errors[3])
}

func TestImportProductsAgencyCode(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)
	data := csvFile(
		"Name,SKU,Price,Agency Code",
		"Rope,R-1,3,BBB",
		"Tape,T-1,2,ZZZ",
		"Glue,G-1,1,",
	)

	result, err := svc.Import(IdentityFor(w.super), EntityProducts, "products.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, []string{
		"Row 2: Agency 'ZZZ' not found",
		"Row 3: Agency Code is required",
	}, result.Errors)

	result, err = svc.Import(IdentityFor(w.staffA), EntityProducts, "products.csv", csvFile(
		"Name,SKU,Price,Agency Code",
		"Chain,C-1,3,BBB",
	))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 1:")
}

func TestImportCustomers(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)
	data := csvFile(
		"Customer Name,Email,Location,Location ID",
		"Wayne Enterprises,bruce@wayne.test,Downtown,",
		fmt.Sprintf("Stark Industries,,,%d", w.locA.ID),
		"Acme Corp,,Downtown,",
		"Bad Mail,not-an-email,Downtown,",
		"Lost,,Atlantis,",
		fmt.Sprintf("Foreign,,,%d", w.locB.ID),
		"Homeless,,,",
	)

	result, err := svc.Import(IdentityFor(w.staffA), EntityCustomers, "customers.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 5, result.Skipped)
	assert.Equal(t, "Row 3: Customer 'Acme Corp' already exists at location 'Downtown'", result.Errors[0])
	assert.Equal(t, "Row 4: Email must be a valid email address", result.Errors[1])
	assert.Equal(t, "Row 5: Location 'Atlantis' not found", result.Errors[2])
	assert.Equal(t, "Row 6: You do not have permission to perform this action", result.Errors[3])
	assert.Equal(t, "Row 7: Location is required", result.Errors[4])
}

func TestImportLocationsFromXLSX(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)

	var buf bytes.Buffer
	require.NoError(t, utils.WriteXLSX(&buf, utils.Sheet{
		Name:    "Locations",
		Headers: []string{"Location Name", "City", "Zip"},
		Rows: [][]string{
			{"Airport", "Springfield", "11111"},
			{"Downtown", "Springfield", ""},
			{"Airport", "Springfield", ""},
		},
	}))

	result, err := svc.Import(IdentityFor(w.adminA), EntityLocations, "locations.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, []string{
		"Row 2: Location 'Downtown' already exists",
		"Row 3: Duplicate location 'Airport' in file",
	}, result.Errors)

	var airport models.Location
	require.NoError(t, w.db.Where("name = ?", "Airport").First(&airport).Error)
	assert.Equal(t, "11111", airport.ZipCode)
	assert.Equal(t, w.agencyA.ID, airport.AgencyID)
}

func TestImportRejectsBadFiles(t *testing.T) {
	w := newWorld(t)
	svc := NewImportService(w.db, DefaultMaxImportErrors)
	staff := IdentityFor(w.staffA)

	tests := []struct {
		name         string
		identity     Identity
		entity       string
		filename     string
		data         []byte
		expectedKind ErrorKind
		expectedCode string
	}{
		{"salesperson", IdentityFor(w.salesA), EntityProducts, "p.csv", csvFile("Name"), KindAuthorization, ""},
		{"orders are export only", staff, EntityOrders, "o.csv", csvFile("Name"), KindValidation, ""},
		{"legacy excel", staff, EntityProducts, "p.xls", []byte("junk"), KindValidation, "UNSUPPORTED_FORMAT"},
		{"text file", staff, EntityProducts, "p.txt", []byte("junk"), KindValidation, "INVALID_FILE_FORMAT"},
		{"empty csv", staff, EntityProducts, "p.csv", []byte{}, KindValidation, "EMPTY_FILE"},
		{"broken xlsx", staff, EntityProducts, "p.xlsx", []byte("not a zip"), KindValidation, "UNREADABLE_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(tt.identity, tt.entity, tt.filename, tt.data)
			require.Error(t, err)
			svcErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedKind, svcErr.Kind)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, svcErr.Code)
			}
		})
	}
}

func TestImportTemplateHeaders(t *testing.T) {
	headers, ok := ImportTemplateHeaders(EntityProducts)
	require.True(t, ok)
	assert.Contains(t, headers, "SKU")
	assert.Contains(t, headers, "Agency Code")

	_, ok = ImportTemplateHeaders(EntityOrders)
	assert.False(t, ok)
}
