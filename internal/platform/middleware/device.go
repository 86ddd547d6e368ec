package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDevice struct{}

// DeviceInfo is a compact description of the requesting client, recorded on
// audit events so reconciliation can tell applicant browsers from the gateway.
type DeviceInfo struct {
	Browser  string
	OS       string
	Mobile   bool
	RemoteIP string
}

// Device parses the User-Agent header once per request and stores the result
// in context.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())
		name, version := ua.Browser()
		info := DeviceInfo{
			Browser:  name + " " + version,
			OS:       ua.OS(),
			Mobile:   ua.Mobile(),
			RemoteIP: r.RemoteAddr,
		}
		ctx := context.WithValue(r.Context(), contextKeyDevice{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDevice retrieves the device description from the context.
func GetDevice(ctx context.Context) DeviceInfo {
	if info, ok := ctx.Value(contextKeyDevice{}).(DeviceInfo); ok {
		return info
	}
	return DeviceInfo{}
}
