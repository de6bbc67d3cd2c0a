package youtube

import "math/rand"

// YouTube Innertube browse endpoint, used for continuation paging past
// the first videos-tab page.

const (
	innertubeBrowseURL = baseURL + "/youtubei/v1/browse?prettyPrint=false"
	ytWebVersion       = "2.20250222.10.00"
)

type webClientCtx struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData,omitempty"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

type webUser struct {
	EnableSafetyMode bool `json:"enableSafetyMode"`
}

type webReqCtx struct {
	UseSsl bool `json:"useSsl"`
}

// generateVisitorData creates a random 11-char visitor ID for Innertube
// requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

// webContext builds the standard WEB client context for Innertube
// payloads.
func webContext(visitorData string) map[string]any {
	return map[string]any{
		"client": webClientCtx{
			ClientName:    "WEB",
			ClientVersion: ytWebVersion,
			VisitorData:   visitorData,
			Hl:            "en",
			Gl:            "US",
		},
		"user":    webUser{EnableSafetyMode: false},
		"request": webReqCtx{UseSsl: true},
	}
}

// browseRequest assembles the payload and headers for one continuation
// page of a channel's videos tab.
func browseRequest(token, visitorData string) (map[string]any, map[string]string) {
	payload := map[string]any{
		"context":      webContext(visitorData),
		"continuation": token,
	}
	headers := map[string]string{
		"Content-Type":             "application/json",
		"Accept":                   "*/*",
		"X-Youtube-Client-Name":    "1",
		"X-Youtube-Client-Version": ytWebVersion,
		"X-Goog-Visitor-Id":        visitorData,
		"Origin":                   baseURL,
		"Referer":                  baseURL + "/",
	}
	return payload, headers
}
