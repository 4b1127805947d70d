package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 文件上传相关常量
const (
	MimePDF   = "application/pdf"
	MimePlain = "text/plain"
	MimeHTML  = "text/html"
)

var (
	AllowedTextExtensions = []string{".pdf", ".txt", ".md", ".html"}
)
