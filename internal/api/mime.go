package api

import "strings"

// Upload MIME policy: broad media categories plus document and archive
// sets, with a deny-list that wins over everything else.

var allowedDocMimes = map[string]struct{}{
	"application/pdf": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/msword":                            {},
	"application/vnd.ms-excel":                      {},
	"application/vnd.ms-powerpoint":                 {},
	"application/vnd.oasis.opendocument.text":        {},
	"application/vnd.oasis.opendocument.spreadsheet":  {},
	"application/vnd.oasis.opendocument.presentation": {},
	"text/plain":       {},
	"text/markdown":    {},
	"text/csv":         {},
	"application/json": {},
}

var allowedArchiveMimes = map[string]struct{}{
	"application/zip":              {},
	"application/x-zip-compressed": {},
	"application/x-7z-compressed":  {},
	"application/x-rar-compressed": {},
	"application/vnd.rar":          {},
	"application/gzip":             {},
	"application/x-tar":            {},
	"application/x-bzip2":          {},
}

var deniedMimes = map[string]struct{}{
	"application/x-msdownload": {},
	"application/x-dosexec":    {},
	"application/x-sh":         {},
	"application/x-bat":        {},
	"application/x-executable": {},
}

func isVideoMimeAllowed(mime string) bool {
	switch mime {
	case "video/mp4", "video/webm", "video/quicktime":
		return true
	}
	return false
}

func isMimeAllowed(mime string) bool {
	if _, denied := deniedMimes[mime]; denied {
		return false
	}

	if strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "audio/") {
		return true
	}
	if isVideoMimeAllowed(mime) {
		return true
	}
	if _, ok := allowedDocMimes[mime]; ok {
		return true
	}
	if _, ok := allowedArchiveMimes[mime]; ok {
		return true
	}

	return false
}

func isImageMime(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}
