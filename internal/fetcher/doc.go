// Package fetcher downloads web pages through a rotating pool of HTTP
// proxies with randomized browser user agents.
//
// Every attempt picks a fresh proxy and user agent. Failed attempts,
// including any non-2xx response, are retried after a fixed delay up to
// the configured number of attempts.
package fetcher
