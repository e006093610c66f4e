// Package challenge detects and clears the blocking screens that stand
// between a fresh session and the actual page: consent banners, bot-check
// walls, and CAPTCHA widgets.
//
// Detection runs two independent keyword scans over the page content, one
// for consent signals and one for bot-detection signals. Consent banners
// are dismissed through an ordered strategy chain (affirmative button
// click, keyboard escape, DOM removal), re-checking after each attempt and
// stopping at the first success. Bot-check and CAPTCHA signals are never
// dismissed here; they are extracted as a Challenge for the captcha
// resolver to handle.
package challenge
