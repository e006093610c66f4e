// Package crawler orchestrates the per-source crawl: it opens a browser
// session, loads the listing page with humanized pacing, works through
// consent banners, bot walls and CAPTCHAs, retries failed navigations
// through the recovery chain, and hands the final page content to the
// source's parser. Sources are independent; one blocked source never
// stops the others.
package crawler
