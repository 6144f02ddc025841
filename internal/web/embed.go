// Package web provides the embedded mobile-facing page.
package web

import "embed"

//go:embed mobile.html
var Assets embed.FS

// MobilePage returns the page served to phones at /.
func MobilePage() []byte {
	data, err := Assets.ReadFile("mobile.html")
	if err != nil {
		// The file is compiled into the binary; this cannot happen.
		panic(err)
	}
	return data
}
