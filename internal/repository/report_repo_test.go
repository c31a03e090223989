package repository

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yochit07/cyberknights/internal/domain"
)

// setupReportTestDB 创建扫描报告测试数据库
func setupReportTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to open test database")

	err = db.AutoMigrate(&domain.ScanReport{}, &domain.MalwareSignature{}, &domain.URLScanRecord{})
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// TestReportRepository_CreateAndFind 测试创建与查询扫描报告
func TestReportRepository_CreateAndFind(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewReportRepository(db, testLogger())
	ctx := context.Background()

	report := &domain.ScanReport{
		ReportID:        "report-001",
		OwnerID:         "user-1",
		FileName:        "sample.apk",
		FileHash:        "deadbeef",
		FileSizeKb:      2048,
		PermissionCount: 3,
		URLCount:        2,
		APICount:        1,
		RiskScore:       43,
		Classification:  "Medium Risk",
		ScanType:        domain.ScanTypeAPK,
	}

	err := repo.Create(ctx, report)
	require.NoError(t, err)
	assert.NotZero(t, report.ID, "ID should be assigned after creation")

	found, err := repo.FindByReportID(ctx, "report-001")
	require.NoError(t, err)
	assert.Equal(t, "sample.apk", found.FileName)
	assert.Equal(t, 43, found.RiskScore)
	assert.Equal(t, "Medium Risk", found.Classification)
	assert.False(t, found.CreatedAt.IsZero())
}

// TestReportRepository_ListWithPagination 测试分页与按用户过滤
func TestReportRepository_ListWithPagination(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewReportRepository(db, testLogger())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		owner := "user-1"
		if i%5 == 0 {
			owner = "user-2"
		}
		err := repo.Create(ctx, &domain.ScanReport{
			ReportID: fmt.Sprintf("report-%03d", i),
			OwnerID:  owner,
			FileName: fmt.Sprintf("app-%d.apk", i),
		})
		require.NoError(t, err)
	}

	reports, total, err := repo.ListWithPagination(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, reports, 10)

	reports, total, err = repo.ListWithPagination(ctx, "user-2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, reports, 5)
}

// TestReportRepository_Delete 测试删除报告
func TestReportRepository_Delete(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewReportRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.ScanReport{ReportID: "report-del", FileName: "x.apk"}))
	require.NoError(t, repo.Delete(ctx, "report-del"))

	_, err := repo.FindByReportID(ctx, "report-del")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestReportRepository_ClassificationCounts 测试分级聚合统计
func TestReportRepository_ClassificationCounts(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewReportRepository(db, testLogger())
	ctx := context.Background()

	classes := []string{"Safe", "Safe", "Medium Risk", "High Risk", "High Risk", "High Risk"}
	for i, c := range classes {
		require.NoError(t, repo.Create(ctx, &domain.ScanReport{
			ReportID:       fmt.Sprintf("cls-%d", i),
			FileName:       "a.apk",
			Classification: c,
		}))
	}

	counts, total, err := repo.GetClassificationCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Equal(t, int64(2), counts["Safe"])
	assert.Equal(t, int64(1), counts["Medium Risk"])
	assert.Equal(t, int64(3), counts["High Risk"])
}

// TestReportRepository_URLRecords 测试 URL 检查记录的写入与查询
func TestReportRepository_URLRecords(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewReportRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.CreateURLRecord(ctx, &domain.URLScanRecord{
		OwnerID:     "user-1",
		URL:         "https://login-update.tk/verify",
		IsSafe:      false,
		ThreatType:  "Suspicious TLD",
		ThreatLevel: "suspicious",
	}))

	records, err := repo.ListURLRecords(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].IsSafe)
	assert.Equal(t, "Suspicious TLD", records[0].ThreatType)

	records, err = repo.ListURLRecords(ctx, "someone-else", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestSignatureRepository_Lookup 测试签名精确匹配与未命中语义
func TestSignatureRepository_Lookup(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewSignatureRepository(db, testLogger())
	ctx := context.Background()

	err := repo.Upsert(ctx, &domain.MalwareSignature{
		SHA256Hash: "aa11bb22",
		ThreatName: "Android/FakeBank.A",
		Severity:   "high",
	})
	require.NoError(t, err)

	sig, err := repo.LookupByHash(ctx, "aa11bb22")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "Android/FakeBank.A", sig.ThreatName)

	// 未命中不是错误
	sig, err = repo.LookupByHash(ctx, "0000000000")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

// TestSignatureRepository_UpsertOverwrites 测试同哈希签名覆盖更新
func TestSignatureRepository_UpsertOverwrites(t *testing.T) {
	db := setupReportTestDB(t)
	repo := NewSignatureRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.MalwareSignature{
		SHA256Hash: "cafebabe", ThreatName: "Old.Name", Severity: "medium",
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.MalwareSignature{
		SHA256Hash: "cafebabe", ThreatName: "New.Name", Severity: "high",
	}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	sig, err := repo.LookupByHash(ctx, "cafebabe")
	require.NoError(t, err)
	assert.Equal(t, "New.Name", sig.ThreatName)
	assert.Equal(t, "high", sig.Severity)
}
