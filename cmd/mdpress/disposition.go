package main

import (
	"fmt"
	"regexp"
	"strings"
)

var unsafeDispositionChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// contentDisposition builds an RFC 6266 Content-Disposition value for
// "<stem>.zip". Non-ASCII names get an ASCII fallback in filename plus the
// real name percent-encoded in filename* (RFC 5987), so the header value is
// always latin-1 safe.
func contentDisposition(stem string) string {
	zipName := stem + ".zip"

	var ascii strings.Builder
	for _, r := range zipName {
		if r < 128 {
			ascii.WriteRune(r)
		}
	}
	fallback := ascii.String()
	if len(fallback) < len(".zip")+1 {
		fallback = unsafeDispositionChars.ReplaceAllString(zipName, "_")
	}
	if fallback == "" || fallback == ".zip" {
		fallback = "download.zip"
	}

	header := fmt.Sprintf("attachment; filename=%q", fallback)
	if zipName != fallback {
		header += "; filename*=UTF-8''" + rfc5987Encode(zipName)
	}
	return header
}

// rfc5987Encode percent-encodes everything outside the attr-char set.
func rfc5987Encode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if isAttrChar(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
