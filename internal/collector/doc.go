// Package collector fetches raw page content under robots.txt, rate-limit
// and retry policy. The probe path uses a Colly-backed HTTP engine; pages
// that look script-rendered can be promoted to a headless Chrome fetch.
package collector
