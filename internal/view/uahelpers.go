// internal/view/uahelpers.go
//
// User-Agent-related template helpers keyed off *requestinfo.RequestInfo.
// Every helper is nil-safe so templates rendered outside a request (tests,
// stream frames) still execute.
package view

import (
	"html/template"

	"github.com/yanizio/threadstead/internal/requestinfo"
)

func uaFuncMap() template.FuncMap {
	return template.FuncMap{
		"device": func(i *requestinfo.RequestInfo) string {
			if i == nil {
				return "Unknown"
			}
			return i.UA.Device
		},
		"isBot": func(i *requestinfo.RequestInfo) bool { return i != nil && i.UA.IsBot },
		"lang": func(i *requestinfo.RequestInfo) string {
			if i == nil || i.UA.PrimaryLang == "" {
				return "en"
			}
			return i.UA.PrimaryLang
		},
	}
}
