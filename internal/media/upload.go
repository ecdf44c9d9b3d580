// Package media validates uploaded files, names them so they never collide,
// and hands them to an image store (local directory or S3).
//
// Import files are staged in the local upload directory under an "import-"
// prefix. The import handler removes them after processing and the Janitor
// sweeps anything a crash left behind.
package media

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/google/uuid"
)

// Default size caps, matching the UI's documented limits.
const (
	DefaultImageMaxSize  int64 = 5 << 20
	DefaultImportMaxSize int64 = 10 << 20
)

// ImportPrefix marks staged CSV files in the upload directory.
const ImportPrefix = "import-"

// maxBaseRunes is how much of the original file name survives in a stored name.
const maxBaseRunes = 40

var csvMIMETypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
}

// Upload describes one received multipart file.
type Upload struct {
	Filename    string // as sent by the client
	ContentType string // declared MIME type
	Size        int64
}

// FromFileHeader builds an Upload from a parsed multipart header.
func FromFileHeader(h *multipart.FileHeader) Upload {
	return Upload{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
	}
}

// mediaType strips parameters such as charset from a declared type.
func (u Upload) mediaType() string {
	mt, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(u.ContentType))
	}
	return mt
}

// ValidateImage accepts files whose declared type is image/* and whose size
// is within maxSize. Non-positive maxSize uses DefaultImageMaxSize.
func ValidateImage(u Upload, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultImageMaxSize
	}
	if !strings.HasPrefix(u.mediaType(), "image/") {
		return core.RejectUpload(core.CodeUnsupportedType, "Only image files allowed")
	}
	if u.Size > maxSize {
		return tooLarge(maxSize)
	}
	return nil
}

// ValidateImport accepts the common CSV MIME types, or any type when the file
// name ends in .csv. Non-positive maxSize uses DefaultImportMaxSize.
func ValidateImport(u Upload, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultImportMaxSize
	}
	if !csvMIMETypes[u.mediaType()] && strings.ToLower(path.Ext(u.Filename)) != ".csv" {
		return core.RejectUpload(core.CodeUnsupportedType, "Only CSV files allowed")
	}
	if u.Size > maxSize {
		return tooLarge(maxSize)
	}
	return nil
}

func tooLarge(limit int64) error {
	return core.RejectUpload(core.CodeFileTooLarge, "File exceeds the %s limit", formatSize(limit))
}

// formatSize renders byte counts the way the limits are documented (5MB, 10MB).
func formatSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return strconv.FormatInt(n>>20, 10) + "MB"
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return strconv.FormatInt(n>>10, 10) + "KB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

// ImageName returns "<base>-<unix-ms>-<random><ext>" for an uploaded image.
// The base is the original name with whitespace runs turned into dashes,
// path separators and other unsafe characters dropped, cut to 40 runes.
func ImageName(original string, now time.Time) string {
	base, ext := splitName(original)
	base = sanitizeBase(base)
	if base == "" {
		base = "image"
	}
	if IsImportName(base + "-") {
		// keep the janitor away from images
		base = "image-" + base
	}
	return fmt.Sprintf("%s-%d-%s%s", base, now.UnixMilli(), randomSuffix(), ext)
}

// ImportName returns "import-<unix-ms>-<random><ext>"; ext defaults to .csv.
func ImportName(original string, now time.Time) string {
	_, ext := splitName(original)
	if ext == "" {
		ext = ".csv"
	}
	return fmt.Sprintf("%s%d-%s%s", ImportPrefix, now.UnixMilli(), randomSuffix(), ext)
}

// IsImportName reports whether name was produced by ImportName.
func IsImportName(name string) bool {
	return strings.HasPrefix(name, ImportPrefix)
}

// splitName returns the last path element of original split into base and a
// sanitized extension. Both / and \ count as separators.
func splitName(original string) (string, string) {
	name := strings.ReplaceAll(original, `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return "", ""
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base, sanitizeExt(ext)
}

func sanitizeBase(base string) string {
	var b strings.Builder
	runes := 0
	inSpace := false
	for _, r := range base {
		if runes >= maxBaseRunes {
			break
		}
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteRune('-')
				runes++
			}
			inSpace = true
			continue
		}
		inSpace = false
		if !safeRune(r) {
			continue
		}
		b.WriteRune(r)
		runes++
	}
	return strings.Trim(b.String(), ".")
}

// sanitizeExt keeps short alphanumeric extensions only.
func sanitizeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return ext
}

func safeRune(r rune) bool {
	switch r {
	case '-', '_', '.':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
