package http

import "mime"

// contentDisposition formats an attachment header. Non-ASCII names are
// carried in the RFC 5987 filename* parameter.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
