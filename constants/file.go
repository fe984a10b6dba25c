package constants

import "strings"

// FileTypes holds the source kinds recorded on a blotter batch.
var FileTypes = []string{"PDF", "IMAGE", "TXT"}

// AllowedExtensions holds the default allowed file extensions for blotter ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"txt":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tif":  {},
	"tiff": {},
}

// ImageExtensions are OCRed directly without a text layer pass.
var ImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SourceTypeForExt maps a normalized extension to one of FileTypes.
func SourceTypeForExt(ext string) string {
	ext = NormalizeExt(ext)
	if _, ok := ImageExtensions[ext]; ok {
		return "IMAGE"
	}
	if ext == "txt" {
		return "TXT"
	}
	return "PDF"
}
