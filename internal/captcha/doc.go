// Package captcha detects CAPTCHA challenges on crawled pages and resolves
// them through an ordered chain of strategies.
//
// Detection recognizes reCAPTCHA, hCaptcha, and Turnstile widgets from DOM
// attributes and iframe sources and extracts the site key. Resolution tries
// each configured solving provider in order through one uniform submit/poll
// protocol, and only after every provider fails falls back to an automated
// bypass heuristic that injects a synthetic response token. After any token
// injection the page is given a settle period and re-detected; the
// challenge being gone is the only accepted proof of success.
package captcha
