package services

import (
	"github.com/kendall-kelly/agency-sales-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityPageSize is the number of activity log rows per page
const ActivityPageSize = 50

// ActivityEntry describes one mutation to be recorded
type ActivityEntry struct {
	UserID      uint
	Action      string
	Description string
	IPAddress   string
	UserAgent   string
}

// ActivityPage is one page of the activity log, newest first
type ActivityPage struct {
	Items   []models.ActivityLog `json:"items"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	Total   int64                `json:"total"`
	Pages   int                  `json:"pages"`
}

// AuditService appends to and reads the activity log
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAuditService creates an AuditService. A nil logger discards warnings.
func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{db: db, logger: logger}
}

// Record appends an activity row. Failures are logged and never returned so
// that auditing cannot fail the mutation it describes.
func (s *AuditService) Record(entry ActivityEntry) {
	row := models.ActivityLog{
		UserID:      entry.UserID,
		Action:      entry.Action,
		Description: entry.Description,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("action", entry.Action),
			zap.Uint("user_id", entry.UserID),
			zap.Error(err),
		)
	}
}

// List returns one page of the activity log. Only super admins may read it.
func (s *AuditService) List(id Identity, page int) (*ActivityPage, error) {
	if !id.IsSuperAdmin() {
		return nil, ErrNotPermitted
	}
	if page < 1 {
		page = 1
	}

	result := &ActivityPage{Page: page, PerPage: ActivityPageSize}
	if err := s.db.Model(&models.ActivityLog{}).Count(&result.Total).Error; err != nil {
		return nil, err
	}
	result.Pages = int((result.Total + ActivityPageSize - 1) / ActivityPageSize)

	err := s.db.Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(ActivityPageSize).
		Offset((page - 1) * ActivityPageSize).
		Find(&result.Items).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Recent returns the latest n activity rows for dashboards
func (s *AuditService) Recent(n int) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	if err := s.db.Preload("User").Order("created_at DESC").Order("id DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
