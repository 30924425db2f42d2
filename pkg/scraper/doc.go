// Package scraper runs one archive job end to end.
//
// A run is strictly staged:
//
//  1. validate the profile URL and derive the username
//  2. launch a browser, navigate and scroll until the page stops growing
//  3. extract candidate media URLs and close the browser
//  4. drop low-resolution candidates
//  5. download the rest, skipping individual failures
//  6. zip the successes and write {username}.zip atomically
//
// Empty outcomes are not errors: a run that finds no candidates reports
// StatusNoMedia, a run where every download failed reports StatusNoDownloads,
// and neither writes an archive.
//
// In static mode the browser is skipped and the profile HTML is fetched and
// parsed directly, which only sees media present in the initial document.
package scraper
