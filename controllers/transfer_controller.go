package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/kendall-kelly/agency-sales-api/utils"
)

// ExportEntity returns the handler for GET /<entity>/export?format=csv|xlsx
func ExportEntity(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := webIdentity(c)
		if !ok {
			return
		}

		file, err := renderExport(c, id, entity)
		if err != nil {
			failForm(c, "/"+entity, err)
			return
		}
		recordExport(c, entity, file)
		sendFile(c, file)
	}
}

// ArchiveExport handles POST /api/v1/exports/:entity?format=csv|xlsx. With
// object storage configured the export is archived and a download link is
// returned; otherwise the file is sent directly.
func ArchiveExport(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	entity := c.Param("entity")
	file, err := renderExport(c, id, entity)
	if err != nil {
		respondError(c, err)
		return
	}

	archive := services.GetArchiveService()
	if archive == nil {
		recordExport(c, entity, file)
		sendFile(c, file)
		return
	}
	archived, err := archive.Archive(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}
	recordExport(c, entity, file)
	respondOK(c, http.StatusCreated, archived)
}

func exportFormat(c *gin.Context) string {
	return strings.ToLower(c.DefaultQuery("format", services.FormatXLSX))
}

func renderExport(c *gin.Context, id services.Identity, entity string) (*services.ExportFile, error) {
	return services.NewExportService(config.GetDB()).Export(id, entity, exportFormat(c), parseFilter(c))
}

// recordExport counts and audits an export once it has been handed over
func recordExport(c *gin.Context, entity string, file *services.ExportFile) {
	format := exportFormat(c)
	middleware.GetMetrics().RecordExport(entity, format)
	recordActivity(c, "export_"+entity, fmt.Sprintf("Exported %d %s as %s", file.Rows, entity, strings.ToUpper(format)))
}

// ImportEntity returns the handler for POST /<entity>/import (multipart "file")
func ImportEntity(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := webIdentity(c)
		if !ok {
			return
		}
		back := "/" + entity

		fileHeader, err := c.FormFile("file")
		if err != nil {
			redirectWithFlash(c, back, utils.FlashError, "No file selected")
			return
		}
		data, err := utils.ReadUploadedFile(fileHeader)
		if err != nil {
			failForm(c, back, err)
			return
		}

		result, err := services.NewImportService(config.GetDB(), importMaxErrors()).Import(id, entity, fileHeader.Filename, data)
		if err != nil {
			failForm(c, back, err)
			return
		}
		middleware.GetMetrics().RecordImport(entity, result.Imported, result.Skipped)

		if result.Imported > 0 {
			recordActivity(c, "import_"+entity, fmt.Sprintf("Imported %d %s from %s", result.Imported, entity, fileHeader.Filename))
			utils.AddFlash(c, utils.FlashSuccess, fmt.Sprintf("Successfully imported %d %s.", result.Imported, entity))
		}
		if result.Skipped > 0 {
			utils.AddFlash(c, utils.FlashWarning, fmt.Sprintf("%d rows were skipped.", result.Skipped))
			for _, msg := range result.Errors {
				utils.AddFlash(c, utils.FlashWarning, msg)
			}
		}
		c.Redirect(http.StatusFound, back)
	}
}

// ImportTemplate returns the handler for GET /<entity>/import/template
func ImportTemplate(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := services.ImportTemplate(entity)
		if err != nil {
			failForm(c, "/"+entity, err)
			return
		}
		sendFile(c, file)
	}
}
