package fingerprint

import (
	"fmt"
	"math/rand"
	"strings"
)

// Profile is a consistent set of browser-identity attributes. A profile is
// bound to exactly one session and must never change while that session is
// open.
type Profile struct {
	UserAgent           string   `json:"user_agent"`
	Platform            string   `json:"platform"`
	HardwareConcurrency int      `json:"hardware_concurrency"`
	DeviceMemory        int      `json:"device_memory"`
	Languages           []string `json:"languages"`
	Timezone            string   `json:"timezone"`
	ScreenWidth         int      `json:"screen_width"`
	ScreenHeight        int      `json:"screen_height"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	WebGLVendor         string   `json:"webgl_vendor"`
	WebGLRenderer       string   `json:"webgl_renderer"`
}

// template groups the attributes that must stay mutually consistent: the
// user agent, the navigator.platform it implies, and a GPU stack plausible
// for that operating system.
type template struct {
	userAgent string
	platform  string
	webgl     []webglPair
}

type webglPair struct {
	vendor   string
	renderer string
}

var templates = []template{
	{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		platform:  "Win32",
		webgl: []webglPair{
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6600 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		},
	},
	{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		platform:  "Win32",
		webgl: []webglPair{
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) Iris(R) Xe Graphics Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce GTX 1660 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		},
	},
	{
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		platform:  "MacIntel",
		webgl: []webglPair{
			{"Google Inc. (Apple)", "ANGLE (Apple, Apple M1, OpenGL 4.1)"},
			{"Google Inc. (Apple)", "ANGLE (Apple, Apple M2, OpenGL 4.1)"},
		},
	},
	{
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		platform:  "Linux x86_64",
		webgl: []webglPair{
			{"Google Inc. (Intel)", "ANGLE (Intel, Mesa Intel(R) UHD Graphics 630 (CFL GT2), OpenGL 4.6)"},
			{"Google Inc. (NVIDIA Corporation)", "ANGLE (NVIDIA Corporation, NVIDIA GeForce GTX 1650/PCIe/SSE2, OpenGL 4.5)"},
		},
	},
}

var (
	concurrencyPool = []int{4, 8, 12, 16}
	memoryPool      = []int{4, 8, 16}
	languagePool    = [][]string{
		{"en-US", "en"},
		{"en-GB", "en"},
		{"en-US", "en", "de"},
	}
	timezonePool = []string{
		"America/New_York",
		"America/Chicago",
		"America/Los_Angeles",
		"Europe/London",
		"Europe/Berlin",
	}
	screenPool = [][2]int{
		{1920, 1080},
		{2560, 1440},
		{1680, 1050},
		{1440, 900},
	}
)

// Generate produces a new random, internally consistent profile.
func Generate(rng *rand.Rand) *Profile {
	tpl := templates[rng.Intn(len(templates))]
	gl := tpl.webgl[rng.Intn(len(tpl.webgl))]
	screen := screenPool[rng.Intn(len(screenPool))]

	// Viewport is the screen minus plausible browser chrome.
	vw := screen[0] - 2*rng.Intn(8)
	vh := screen[1] - (85 + rng.Intn(60))

	return &Profile{
		UserAgent:           tpl.userAgent,
		Platform:            tpl.platform,
		HardwareConcurrency: concurrencyPool[rng.Intn(len(concurrencyPool))],
		DeviceMemory:        memoryPool[rng.Intn(len(memoryPool))],
		Languages:           languagePool[rng.Intn(len(languagePool))],
		Timezone:            timezonePool[rng.Intn(len(timezonePool))],
		ScreenWidth:         screen[0],
		ScreenHeight:        screen[1],
		ViewportWidth:       vw,
		ViewportHeight:      vh,
		WebGLVendor:         gl.vendor,
		WebGLRenderer:       gl.renderer,
	}
}

// GenerateExcluding produces a profile whose user agent differs from the
// given one. Used when rotating identity after repeated blocks.
func GenerateExcluding(rng *rand.Rand, exclude *Profile) *Profile {
	for i := 0; i < 10; i++ {
		p := Generate(rng)
		if exclude == nil || p.UserAgent != exclude.UserAgent {
			return p
		}
	}
	return Generate(rng)
}

// Consistent reports whether the profile's platform agrees with the
// operating system implied by its user agent.
func (p *Profile) Consistent() bool {
	ua := strings.ToLower(p.UserAgent)
	switch p.Platform {
	case "Win32":
		return strings.Contains(ua, "windows")
	case "MacIntel":
		return strings.Contains(ua, "mac os x")
	case "Linux x86_64":
		return strings.Contains(ua, "linux")
	default:
		return false
	}
}

// PrimaryLanguage returns the first entry of Languages, or "en-US" if the
// list is empty.
func (p *Profile) PrimaryLanguage() string {
	if len(p.Languages) == 0 {
		return "en-US"
	}
	return p.Languages[0]
}

// InitScript builds the JavaScript injected before any page script runs so
// that every later read of navigator, screen, and WebGL sees this profile's
// values. The script also clears the webdriver flag, the single most common
// automation tell.
func (p *Profile) InitScript() string {
	langs := make([]string, 0, len(p.Languages))
	for _, l := range p.Languages {
		langs = append(langs, fmt.Sprintf("%q", l))
	}

	return fmt.Sprintf(`(() => {
  if (window.__fpApplied) { return; }
  window.__fpApplied = true;
  try {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    Object.defineProperty(navigator, 'platform', { get: () => %q, configurable: true });
    Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d, configurable: true });
    Object.defineProperty(navigator, 'deviceMemory', { get: () => %d, configurable: true });
    Object.defineProperty(navigator, 'languages', { get: () => [%s], configurable: true });
    Object.defineProperty(navigator, 'language', { get: () => %q, configurable: true });
    Object.defineProperty(screen, 'width', { get: () => %d, configurable: true });
    Object.defineProperty(screen, 'height', { get: () => %d, configurable: true });
    Object.defineProperty(screen, 'availWidth', { get: () => %d, configurable: true });
    Object.defineProperty(screen, 'availHeight', { get: () => %d, configurable: true });

    const getParameter = WebGLRenderingContext.prototype.getParameter;
    WebGLRenderingContext.prototype.getParameter = function (param) {
      if (param === 37445) { return %q; }
      if (param === 37446) { return %q; }
      return getParameter.call(this, param);
    };
  } catch (e) {
    // Individual overrides may fail on exotic pages; partial cover is
    // still better than none.
  }
})();`,
		p.Platform,
		p.HardwareConcurrency,
		p.DeviceMemory,
		strings.Join(langs, ", "),
		p.PrimaryLanguage(),
		p.ScreenWidth,
		p.ScreenHeight,
		p.ScreenWidth,
		p.ScreenHeight-40,
		p.WebGLVendor,
		p.WebGLRenderer,
	)
}
