package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yochit07/cyberknights/internal/apk"
	"github.com/yochit07/cyberknights/internal/domain"
)

// MockReportRepository Mock Repository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *domain.ScanReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) FindByReportID(ctx context.Context, reportID string) (*domain.ScanReport, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanReport), args.Error(1)
}

func (m *MockReportRepository) ListWithPagination(ctx context.Context, ownerID string, page int, pageSize int) ([]*domain.ScanReport, int64, error) {
	args := m.Called(ctx, ownerID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.ScanReport), args.Get(1).(int64), args.Error(2)
}

func (m *MockReportRepository) Delete(ctx context.Context, reportID string) error {
	args := m.Called(ctx, reportID)
	return args.Error(0)
}

func (m *MockReportRepository) GetClassificationCounts(ctx context.Context) (map[string]int64, int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(map[string]int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockReportRepository) CreateURLRecord(ctx context.Context, record *domain.URLScanRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockReportRepository) ListURLRecords(ctx context.Context, ownerID string, limit int) ([]*domain.URLScanRecord, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.URLScanRecord), args.Error(1)
}

// MockSignatureRepository Mock 签名仓库
type MockSignatureRepository struct {
	mock.Mock
}

func (m *MockSignatureRepository) LookupByHash(ctx context.Context, sha256Hex string) (*domain.MalwareSignature, error) {
	args := m.Called(ctx, sha256Hex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MalwareSignature), args.Error(1)
}

func (m *MockSignatureRepository) Upsert(ctx context.Context, sig *domain.MalwareSignature) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *MockSignatureRepository) List(ctx context.Context, limit int) ([]*domain.MalwareSignature, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MalwareSignature), args.Error(1)
}

func (m *MockSignatureRepository) Delete(ctx context.Context, sha256Hex string) error {
	args := m.Called(ctx, sha256Hex)
	return args.Error(0)
}

func (m *MockSignatureRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// fakeBroadcaster 收集广播事件
type fakeBroadcaster struct {
	events []ScanEvent
}

func (f *fakeBroadcaster) BroadcastScan(event ScanEvent) {
	f.events = append(f.events, event)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// buildTestAPK 构造内存 ZIP 作为测试 APK
func buildTestAPK(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// TestScanAPK_NoSignatureMatch 签名未命中时 M=0
func TestScanAPK_NoSignatureMatch(t *testing.T) {
	reportRepo := new(MockReportRepository)
	sigRepo := new(MockSignatureRepository)
	broadcaster := &fakeBroadcaster{}

	sigRepo.On("LookupByHash", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	reportRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanReport")).Return(nil)

	svc := NewScanService(reportRepo, sigRepo, broadcaster, nil, testLogger())

	buf := buildTestAPK(t, map[string][]byte{
		"classes.dex": []byte("TelephonyManager https://c2.example.net/gate"),
	})

	outcome, err := svc.ScanAPK(context.Background(), "user-1", "sample.apk", buf)
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.ReportID)
	assert.False(t, outcome.MalwareMatch)
	// P=0, M=0, U=1, A=1 -> 18
	assert.Equal(t, 18, outcome.Risk.Score)
	assert.Equal(t, "Safe", string(outcome.Risk.Classification))

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, outcome.ReportID, broadcaster.events[0].ReportID)
	assert.Equal(t, 18, broadcaster.events[0].RiskScore)

	reportRepo.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(r *domain.ScanReport) bool {
		return r.FileName == "sample.apk" && r.RiskScore == 18 && !r.MalwareMatch
	}))
}

// TestScanAPK_SignatureMatch 签名命中贡献 40 分与威胁名称
func TestScanAPK_SignatureMatch(t *testing.T) {
	reportRepo := new(MockReportRepository)
	sigRepo := new(MockSignatureRepository)

	sigRepo.On("LookupByHash", mock.Anything, mock.AnythingOfType("string")).Return(
		&domain.MalwareSignature{ThreatName: "Android/FakeBank.A", Severity: "high"}, nil)
	reportRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanReport")).Return(nil)

	svc := NewScanService(reportRepo, sigRepo, nil, nil, testLogger())

	buf := buildTestAPK(t, map[string][]byte{
		"classes.dex": []byte("nothing suspicious here"),
	})

	outcome, err := svc.ScanAPK(context.Background(), "", "bad.apk", buf)
	require.NoError(t, err)

	assert.True(t, outcome.MalwareMatch)
	assert.Equal(t, "Android/FakeBank.A", outcome.MalwareName)
	assert.Equal(t, 40, outcome.Risk.Score)
	assert.Equal(t, "Medium Risk", string(outcome.Risk.Classification))
	assert.True(t, outcome.Risk.Malware.Match)
}

// TestScanAPK_SignatureLookupError 签名库故障降级为未命中，不影响评分
func TestScanAPK_SignatureLookupError(t *testing.T) {
	reportRepo := new(MockReportRepository)
	sigRepo := new(MockSignatureRepository)

	sigRepo.On("LookupByHash", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, errors.New("connection refused"))
	reportRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanReport")).Return(nil)

	svc := NewScanService(reportRepo, sigRepo, nil, nil, testLogger())

	buf := buildTestAPK(t, map[string][]byte{"classes.dex": []byte("clean")})

	outcome, err := svc.ScanAPK(context.Background(), "", "sample.apk", buf)
	require.NoError(t, err)
	assert.False(t, outcome.MalwareMatch)
	assert.Equal(t, 0, outcome.Risk.Score)
}

// TestScanAPK_InvalidArchive 非法容器终态失败，不写报告
func TestScanAPK_InvalidArchive(t *testing.T) {
	reportRepo := new(MockReportRepository)
	sigRepo := new(MockSignatureRepository)

	svc := NewScanService(reportRepo, sigRepo, nil, nil, testLogger())

	outcome, err := svc.ScanAPK(context.Background(), "", "junk.apk", []byte("not a zip"))

	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, apk.ErrInvalidArchive)
	reportRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	sigRepo.AssertNotCalled(t, "LookupByHash", mock.Anything, mock.Anything)
}

// TestScanAPK_ReportSaveFailure 入库失败不影响扫描结论返回
func TestScanAPK_ReportSaveFailure(t *testing.T) {
	reportRepo := new(MockReportRepository)
	sigRepo := new(MockSignatureRepository)

	sigRepo.On("LookupByHash", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	reportRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanReport")).
		Return(errors.New("disk full"))

	svc := NewScanService(reportRepo, sigRepo, nil, nil, testLogger())

	buf := buildTestAPK(t, map[string][]byte{"classes.dex": []byte("clean")})

	outcome, err := svc.ScanAPK(context.Background(), "", "sample.apk", buf)
	require.NoError(t, err)
	assert.NotNil(t, outcome.Risk)
}

// TestScanURL 测试 URL 检查与记录落库
func TestScanURL(t *testing.T) {
	reportRepo := new(MockReportRepository)
	sigRepo := new(MockSignatureRepository)

	reportRepo.On("CreateURLRecord", mock.Anything, mock.AnythingOfType("*domain.URLScanRecord")).Return(nil)

	svc := NewScanService(reportRepo, sigRepo, nil, nil, testLogger())

	result, err := svc.ScanURL(context.Background(), "user-1", "https://login-update.tk/verify")
	require.NoError(t, err)

	assert.False(t, result.IsSafe)
	assert.Equal(t, "Suspicious TLD", result.ThreatType)

	reportRepo.AssertCalled(t, "CreateURLRecord", mock.Anything, mock.MatchedBy(func(r *domain.URLScanRecord) bool {
		return r.OwnerID == "user-1" && !r.IsSafe && r.ThreatLevel == "suspicious"
	}))
}
