package apk

import "regexp"

// 静态特征库：进程级只读数据，启动时初始化一次，各分析组件按引用共享。
// 来源为 OWASP / Google 危险权限清单与常见恶意行为 API 特征。

// DangerousPermissions 危险权限清单
var DangerousPermissions = []string{
	"android.permission.READ_CONTACTS",
	"android.permission.WRITE_CONTACTS",
	"android.permission.READ_CALL_LOG",
	"android.permission.WRITE_CALL_LOG",
	"android.permission.PROCESS_OUTGOING_CALLS",
	"android.permission.READ_SMS",
	"android.permission.SEND_SMS",
	"android.permission.RECEIVE_SMS",
	"android.permission.RECEIVE_MMS",
	"android.permission.READ_PHONE_STATE",
	"android.permission.CALL_PHONE",
	"android.permission.RECORD_AUDIO",
	"android.permission.CAMERA",
	"android.permission.ACCESS_FINE_LOCATION",
	"android.permission.ACCESS_COARSE_LOCATION",
	"android.permission.ACCESS_BACKGROUND_LOCATION",
	"android.permission.READ_EXTERNAL_STORAGE",
	"android.permission.WRITE_EXTERNAL_STORAGE",
	"android.permission.GET_ACCOUNTS",
	"android.permission.USE_BIOMETRIC",
	"android.permission.USE_FINGERPRINT",
	"android.permission.BIND_DEVICE_ADMIN",
	"android.permission.SYSTEM_ALERT_WINDOW",
	"android.permission.WRITE_SETTINGS",
	"android.permission.RECEIVE_BOOT_COMPLETED",
	"android.permission.FOREGROUND_SERVICE",
	"android.permission.REQUEST_INSTALL_PACKAGES",
	"android.permission.CHANGE_NETWORK_STATE",
}

// dangerousPermissionSet 危险权限集合（O(1) 成员判断）
var dangerousPermissionSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(DangerousPermissions))
	for _, p := range DangerousPermissions {
		set[p] = struct{}{}
	}
	return set
}()

// SuspiciousAPIs 可疑 API 调用特征（电话标识、短信、反射/动态加载、Shell 执行、加密、WebView 桥接等）
// 命中判定为聚合文本中的精确子串匹配，只记录是否出现，不统计次数。
var SuspiciousAPIs = []string{
	"getDeviceId", "getImei", "getSubscriberId", "getLine1Number",
	"getAllNetworkInfo", "sendTextMessage", "sendMultipartTextMessage",
	"execShell", "Runtime.exec", "ProcessBuilder",
	"Cipher.getInstance", "getPassword", "getAccounts",
	"loadUrl", "addJavascriptInterface",
	"DexClassLoader", "PathClassLoader", "loadClass",
	"TelephonyManager", "SmsManager", "AudioRecord",
	"MediaRecorder", "KeyStore", "SecretKeyFactory",
	"getContactsStrings", "getCallLog", "getLocation",
	"Ljava/net/URL;->openConnection", "Landroid/webkit/WebView;->loadUrl",
	"Ljava/lang/Runtime;->exec", "Ljava/lang/reflect/Method;->invoke",
	"Ljavax/crypto/Cipher;->doFinal", "Landroid/content/Context;->startService",
	"Landroid/content/Context;->bindService", "Landroid/content/Intent;->setDataAndType",
}

// SensitivePattern 敏感数据正则特征
type SensitivePattern struct {
	Name  string
	Regex *regexp.Regexp
}

// SensitivePatterns 敏感数据特征库（云访问密钥、通用 API Key、存储/Webhook 端点、裸 IP）
var SensitivePatterns = []SensitivePattern{
	{Name: "AWS Access Key", Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{Name: "Generic API Key", Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{Name: "Firebase URL", Regex: regexp.MustCompile(`(?i)[a-z0-9.-]+\.firebaseio\.com`)},
	{Name: "S3 Bucket", Regex: regexp.MustCompile(`(?i)[a-z0-9.-]+\.s3\.amazonaws\.com`)},
	{Name: "Slack Webhook", Regex: regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Z0-9]+/[A-Z0-9]+/[A-Za-z0-9]+`)},
	{Name: "IP Address", Regex: regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
}

// urlDenylist 良性框架/Schema 域名，命中即丢弃
var urlDenylist = []string{
	"schemas.android",
	"ns.adobe",
	"apache.org",
	"w3.org",
	"google.com/tools",
	"google.com/apk",
	"example.com",
}

// permissionRegex 权限标识文本约定：命名空间前缀 + 大写下划线 token
var permissionRegex = regexp.MustCompile(`android\.permission\.[A-Z_]+`)

// urlRegex URL 特征：scheme 前缀 + 以空白/引号/括号为界的 token，长度 4-200
var urlRegex = regexp.MustCompile(`https?://[^\s"'<>)(]{4,200}`)
