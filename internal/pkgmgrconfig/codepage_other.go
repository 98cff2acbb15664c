//go:build !windows

package pkgmgrconfig

import "golang.org/x/text/encoding"

// DetectSystemEncoding always reports UTF-8 (nil) outside Windows; the
// active-code-page scheme is a Windows-only concept.
func DetectSystemEncoding() encoding.Encoding {
	return nil
}
