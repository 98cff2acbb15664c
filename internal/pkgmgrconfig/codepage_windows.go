//go:build windows

package pkgmgrconfig

import (
	"golang.org/x/sys/windows"
	"golang.org/x/text/encoding"
)

// DetectSystemEncoding returns the encoding.Encoding matching the active
// ANSI code page on Windows, or nil (meaning UTF-8) when the code page
// isn't one of the installer's recognized values.
func DetectSystemEncoding() encoding.Encoding {
	return codePageEncoding(windows.GetACP())
}
