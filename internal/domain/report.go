package domain

import "time"

// ScanType 扫描类型
type ScanType string

const (
	ScanTypeAPK ScanType = "apk"
	ScanTypeURL ScanType = "url"
)

// ScanReport APK 扫描报告表。
// 信号列表（权限/URL/API/敏感数据）以 JSON 文本冗余存储，方便整条返回。
type ScanReport struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID string `gorm:"type:varchar(36);uniqueIndex:uk_report_id;not null" json:"report_id"`
	OwnerID  string `gorm:"type:varchar(64);index:idx_owner" json:"owner_id,omitempty"`

	// 文件标识
	FileName   string `gorm:"type:varchar(255);not null" json:"file_name"`
	FileHash   string `gorm:"type:varchar(64);index:idx_file_hash" json:"file_hash"`
	FileSizeKb int    `gorm:"default:0" json:"file_size_kb"`

	// 评分因子计数
	PermissionCount int  `gorm:"default:0" json:"permission_count"`
	MalwareMatch    bool `gorm:"default:false" json:"malware_match"`
	URLCount        int  `gorm:"default:0" json:"url_count"`
	APICount        int  `gorm:"default:0" json:"api_count"`

	// 评分结果
	MalwareName    string `gorm:"type:varchar(255)" json:"malware_name,omitempty"`
	RiskScore      int    `gorm:"default:0;index:idx_risk_score" json:"risk_score"`
	Classification string `gorm:"type:varchar(20)" json:"classification"`

	// 完整信号列表（JSON 编码）
	PermissionsJSON   string `gorm:"type:text" json:"permissions_json,omitempty"`
	URLsJSON          string `gorm:"type:text" json:"urls_json,omitempty"`
	SuspiciousAPIJSON string `gorm:"type:text" json:"suspicious_apis_json,omitempty"`
	SensitiveDataJSON string `gorm:"type:text" json:"sensitive_data_json,omitempty"`

	ScanType  ScanType  `gorm:"type:varchar(10);default:'apk'" json:"scan_type"`
	CreatedAt time.Time `gorm:"not null;index:idx_created_at" json:"created_at"`
}

func (ScanReport) TableName() string {
	return "scan_reports"
}

// MalwareSignature 恶意样本签名表（SHA-256 精确匹配）
type MalwareSignature struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SHA256Hash string    `gorm:"type:varchar(64);uniqueIndex:uk_sha256;not null" json:"sha256_hash"`
	ThreatName string    `gorm:"type:varchar(255);not null" json:"threat_name"`
	Severity   string    `gorm:"type:varchar(20);default:'high'" json:"severity"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (MalwareSignature) TableName() string {
	return "malware_signatures"
}

// URLScanRecord URL 信誉检查记录表
type URLScanRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     string    `gorm:"type:varchar(64);index:idx_url_owner" json:"owner_id,omitempty"`
	URL         string    `gorm:"type:varchar(2048);not null" json:"url"`
	IsSafe      bool      `gorm:"default:true" json:"is_safe"`
	ThreatType  string    `gorm:"type:varchar(64)" json:"threat_type,omitempty"`
	ThreatLevel string    `gorm:"type:varchar(20);default:'safe'" json:"threat_level"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (URLScanRecord) TableName() string {
	return "url_scan_records"
}
