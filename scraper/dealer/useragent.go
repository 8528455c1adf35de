package dealer

import "fmt"

var desktopPlatforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"X11; Linux x86_64",
}

const (
	minChromeMajor = 120
	chromeMajors   = 8
)

// RandomUserAgent returns a realistic desktop Chromium user agent. One in
// three is an Edge string.
func RandomUserAgent(p *Pacer) string {
	platform := desktopPlatforms[p.Intn(len(desktopPlatforms))]
	major := minChromeMajor + p.Intn(chromeMajors)
	build := 6000 + p.Intn(400)
	patch := p.Intn(200)

	ua := fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
		platform, major, build, patch)
	if p.Intn(3) == 0 {
		ua += fmt.Sprintf(" Edg/%d.0.%d.%d", major, build, p.Intn(200))
	}
	return ua
}
