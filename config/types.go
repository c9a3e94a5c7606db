package config

import (
	"slices"
	"strings"
)

// PlainTextTypes are extensions whose bytes are readable text without a
// format-specific extractor.
var PlainTextTypes = []string{
	"txt", "md", "markdown", "csv", "tsv", "log", "json", "xml", "html", "htm",
	"yaml", "yml", "ini", "cfg", "conf", "rst", "tex", "sql", "sh", "bat",
}

// DocumentTypes are extensions handled by a document extractor when the
// matching format library is available.
var DocumentTypes = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"odt", "ods", "odp", "rtf", "eml", "mbox", "msg",
}

// UserFolderKeywords mark paths scanned first when user folders are prioritized.
var UserFolderKeywords = []string{"users", "documents", "desktop", "downloads", "documents and settings"}

// SystemFolderKeywords mark paths scanned last when user folders are prioritized.
var SystemFolderKeywords = []string{
	"windows", "program files", "program files (x86)", "programdata",
	"$recycle.bin", "system volume information",
}

// DataFolderKeywords mark paths scanned right after user folders.
var DataFolderKeywords = []string{"data", "database", "downloads"}

// ProblematicNames are entry names never listed or opened: OS swap/hibernation
// files and volume metadata that block or fail on read.
var ProblematicNames = map[string]bool{
	"$recycle.bin":              true,
	"system volume information": true,
	"pagefile.sys":              true,
	"hiberfil.sys":              true,
	"swapfile.sys":              true,
	"dumpstack.log.tmp":         true,
	"config.msi":                true,
	"lost+found":                true,
}

// PseudoFilesystems are absolute unix paths that expose kernel state rather
// than files and are skipped when a scan reaches them from above.
var PseudoFilesystems = []string{"/proc", "/sys", "/dev", "/run"}

// ProtectedFileMarkers identify rights-management or protector files whose
// content can't be read and whose open may trigger a client prompt.
var ProtectedFileMarkers = []string{".pfile", ".ppdf", ".ptxt", ".pxml", ".rpmsg", "protector", "rmsprotected"}

// IsPlainTextType checks if an extension (with or without dot) is plain text
func IsPlainTextType(ext string) bool {
	return slices.Contains(PlainTextTypes, normalizeExt(ext))
}

// IsDocumentType checks if an extension (with or without dot) is a document format
func IsDocumentType(ext string) bool {
	return slices.Contains(DocumentTypes, normalizeExt(ext))
}

// IsProblematicName reports whether a base name is on the never-touch list.
func IsProblematicName(name string) bool {
	return ProblematicNames[strings.ToLower(name)]
}

// IsProtectedFile reports whether a file name carries a rights-management marker.
// Office owner lock files ("~$report.docx") are included.
func IsProtectedFile(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "~$") {
		return true
	}
	for _, marker := range ProtectedFileMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// GetFileTypeDescription returns a human-readable description of content types
func GetFileTypeDescription(excludeSystemFiles bool) string {
	if excludeSystemFiles {
		return "text (" + strings.Join(PlainTextTypes, ", ") + ") + documents (" + strings.Join(DocumentTypes, ", ") + ")"
	}
	return "all files"
}

// normalizeExt lowercases and strips a leading dot.
func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
