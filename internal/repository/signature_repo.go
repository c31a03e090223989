package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yochit07/cyberknights/internal/domain"
)

type SignatureRepository interface {
	// LookupByHash 精确哈希匹配。未命中返回 (nil, nil)，不是错误。
	LookupByHash(ctx context.Context, sha256Hex string) (*domain.MalwareSignature, error)
	Upsert(ctx context.Context, sig *domain.MalwareSignature) error
	List(ctx context.Context, limit int) ([]*domain.MalwareSignature, error)
	Delete(ctx context.Context, sha256Hex string) error
	Count(ctx context.Context) (int64, error)
}

type signatureRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewSignatureRepository(db *gorm.DB, logger *logrus.Logger) SignatureRepository {
	return &signatureRepo{
		db:     db,
		logger: logger,
	}
}

func (r *signatureRepo) LookupByHash(ctx context.Context, sha256Hex string) (*domain.MalwareSignature, error) {
	var sig domain.MalwareSignature
	err := r.db.WithContext(ctx).
		Where("sha256_hash = ?", sha256Hex).
		First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *signatureRepo) Upsert(ctx context.Context, sig *domain.MalwareSignature) error {
	sig.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sha256_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"threat_name", "severity"}),
		}).
		Create(sig).Error
}

func (r *signatureRepo) List(ctx context.Context, limit int) ([]*domain.MalwareSignature, error) {
	var sigs []*domain.MalwareSignature
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&sigs).Error
	return sigs, err
}

func (r *signatureRepo) Delete(ctx context.Context, sha256Hex string) error {
	return r.db.WithContext(ctx).
		Where("sha256_hash = ?", sha256Hex).
		Delete(&domain.MalwareSignature{}).Error
}

func (r *signatureRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.MalwareSignature{}).
		Count(&count).Error
	return count, err
}
