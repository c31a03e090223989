package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yochit07/cyberknights/internal/domain"
)

type ReportRepository interface {
	Create(ctx context.Context, report *domain.ScanReport) error
	FindByReportID(ctx context.Context, reportID string) (*domain.ScanReport, error)
	ListWithPagination(ctx context.Context, ownerID string, page int, pageSize int) ([]*domain.ScanReport, int64, error)
	Delete(ctx context.Context, reportID string) error
	// 获取分级统计（数据库聚合查询）
	GetClassificationCounts(ctx context.Context) (map[string]int64, int64, error)
	// URL 信誉检查记录
	CreateURLRecord(ctx context.Context, record *domain.URLScanRecord) error
	ListURLRecords(ctx context.Context, ownerID string, limit int) ([]*domain.URLScanRecord, error)
}

type reportRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewReportRepository(db *gorm.DB, logger *logrus.Logger) ReportRepository {
	return &reportRepo{
		db:     db,
		logger: logger,
	}
}

func (r *reportRepo) Create(ctx context.Context, report *domain.ScanReport) error {
	report.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepo) FindByReportID(ctx context.Context, reportID string) (*domain.ScanReport, error) {
	var report domain.ScanReport
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) ListWithPagination(ctx context.Context, ownerID string, page int, pageSize int) ([]*domain.ScanReport, int64, error) {
	var reports []*domain.ScanReport
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.ScanReport{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepo) Delete(ctx context.Context, reportID string) error {
	return r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Delete(&domain.ScanReport{}).Error
}

func (r *reportRepo) CreateURLRecord(ctx context.Context, record *domain.URLScanRecord) error {
	record.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *reportRepo) ListURLRecords(ctx context.Context, ownerID string, limit int) ([]*domain.URLScanRecord, error) {
	var records []*domain.URLScanRecord
	query := r.db.WithContext(ctx).Model(&domain.URLScanRecord{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *reportRepo) GetClassificationCounts(ctx context.Context) (map[string]int64, int64, error) {
	type row struct {
		Classification string
		Count          int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&domain.ScanReport{}).
		Select("classification, count(*) as count").
		Group("classification").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int64, len(rows))
	var total int64
	for _, rw := range rows {
		counts[rw.Classification] = rw.Count
		total += rw.Count
	}

	return counts, total, nil
}
